package inkjson

import (
	"fmt"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// Compiled format versions this package understands.
const (
	InkVersionCurrent           = 21
	InkVersionMinimumCompatible = 18
)

// Story is a decoded compiled story.
type Story struct {
	InkVersion int
	Root       *content.Container
	ListDefs   *value.ListDefinitions
}

// ReadStory decodes a compiled story.
func ReadStory(data []byte) (*Story, error) {
	token, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, err := Object(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "story root is not an object", err)
	}

	versionTok, ok := obj["inkVersion"]
	if !ok {
		return nil, apperrors.New(apperrors.CodeStoryFormatInvalid, "ink version number not found")
	}
	version, err := Int(versionTok)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "ink version is not an integer", err)
	}
	if version > InkVersionCurrent {
		return nil, apperrors.WithMetadata(apperrors.CodeStoryVersionUnsupported,
			"story was compiled by a newer version of ink than the engine supports",
			map[string]string{"version": fmt.Sprint(version)})
	}
	if version < InkVersionMinimumCompatible {
		return nil, apperrors.WithMetadata(apperrors.CodeStoryVersionUnsupported,
			"story was compiled by a version of ink too old to load",
			map[string]string{"version": fmt.Sprint(version)})
	}

	rootTok, ok := obj["root"]
	if !ok {
		return nil, apperrors.New(apperrors.CodeStoryFormatInvalid, "root node not found")
	}
	rootArr, err := Array(rootTok)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "root node is not a container", err)
	}
	root, err := ReadContainer(rootArr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "read root container", err)
	}

	defs := value.NewListDefinitions()
	if tok, ok := obj["listDefs"]; ok {
		if defs, err = ReadListDefinitions(tok); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoryFormatInvalid, "read list definitions", err)
		}
	}

	return &Story{InkVersion: version, Root: root, ListDefs: defs}, nil
}

// WriteStory encodes a story in its compiled form.
func WriteStory(s *Story) ([]byte, error) {
	root, err := WriteContainer(s.Root, false)
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"inkVersion": IntToken(InkVersionCurrent),
		"root":       root,
	}
	if defs := s.ListDefs.Definitions(); len(defs) > 0 {
		out["listDefs"] = WriteListDefinitions(s.ListDefs)
	}
	return Encode(out)
}

// ReadListDefinitions reads {"List": {"item": value, ...}, ...}.
func ReadListDefinitions(token any) (*value.ListDefinitions, error) {
	obj, err := Object(token)
	if err != nil {
		return nil, err
	}
	var defs []*value.ListDefinition
	for name, itemsTok := range obj {
		items, err := ReadIntMap(itemsTok)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", name, err)
		}
		defs = append(defs, value.NewListDefinition(name, items))
	}
	return value.NewListDefinitions(defs...), nil
}

// WriteListDefinitions writes the definitions in their compiled form.
func WriteListDefinitions(defs *value.ListDefinitions) map[string]any {
	out := map[string]any{}
	for _, def := range defs.Definitions() {
		items := map[string]any{}
		for _, e := range def.Entries() {
			items[e.Item.Name] = IntToken(e.Value)
		}
		out[def.Name()] = items
	}
	return out
}
