package flow

import (
	"github.com/louisbranch/storyloom/internal/story/callstack"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
)

// Choice is an option generated for the player.
type Choice struct {
	Text string
	// Index is the position among the choices shown to the player.
	Index int
	// SourcePath is the path of the choice point that generated it.
	SourcePath string
	TargetPath *content.Path
	// OriginalThreadIndex identifies the thread the choice was generated
	// on. It is refreshed from ThreadAtGeneration on every save.
	OriginalThreadIndex int
	IsInvisibleDefault  bool
	Tags                []string
	// ThreadAtGeneration is the thread to resume when the choice is taken.
	// It is owned by the choice and never mutated.
	ThreadAtGeneration *callstack.Thread
}

// Copy returns a choice that can be mutated independently. The thread at
// generation is shared, as it is never mutated.
func (c *Choice) Copy() *Choice {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}

// WriteJSON serializes the choice. The thread at generation is written
// separately by the flow.
func (c *Choice) WriteJSON() map[string]any {
	obj := map[string]any{
		"text":                c.Text,
		"index":               inkjson.IntToken(c.Index),
		"originalChoicePath":  c.SourcePath,
		"originalThreadIndex": inkjson.IntToken(c.OriginalThreadIndex),
		"targetPath":          c.TargetPath.String(),
	}
	if len(c.Tags) > 0 {
		tags := make([]any, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = t
		}
		obj["tags"] = tags
	}
	return obj
}

// ReadChoice rebuilds a serialized choice without its thread.
func ReadChoice(obj map[string]any) (*Choice, error) {
	c := &Choice{}
	var err error
	if c.Text, err = stringField(obj, "text"); err != nil {
		return nil, err
	}
	if c.Index, err = inkjson.IntField(obj, "index"); err != nil {
		return nil, snapshotError(err)
	}
	if c.SourcePath, err = stringField(obj, "originalChoicePath"); err != nil {
		return nil, err
	}
	if c.OriginalThreadIndex, err = inkjson.IntField(obj, "originalThreadIndex"); err != nil {
		return nil, snapshotError(err)
	}
	target, err := stringField(obj, "targetPath")
	if err != nil {
		return nil, err
	}
	c.TargetPath = content.ParsePath(target)
	if tok, ok := obj["tags"]; ok {
		arr, err := inkjson.Array(tok)
		if err != nil {
			return nil, snapshotError(err)
		}
		for _, t := range arr {
			s, err := inkjson.String(t)
			if err != nil {
				return nil, snapshotError(err)
			}
			c.Tags = append(c.Tags, s)
		}
	}
	return c, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	tok, err := inkjson.Field(obj, key)
	if err != nil {
		return "", snapshotError(err)
	}
	s, err := inkjson.String(tok)
	if err != nil {
		return "", snapshotError(err)
	}
	return s, nil
}
