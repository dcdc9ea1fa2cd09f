package story

import (
	"fmt"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
)

// contentAtPath resolves an absolute path from the root. The graph never
// changes, so results are cached.
func (s *Story) contentAtPath(p *content.Path) content.SearchResult {
	key := p.String()
	if res, ok := s.paths.Get(key); ok {
		return res
	}
	res := s.root.ContentAtPath(p, 0, -1)
	s.paths.Add(key, res)
	return res
}

// pointerAtPath resolves an absolute path into an execution position. An
// approximated position is used but reported as a warning.
func (s *Story) pointerAtPath(p *content.Path) (content.Pointer, error) {
	if p.Len() == 0 {
		return content.NullPointer, nil
	}

	lookup := p
	index := -1
	if last, _ := p.LastComponent(); last.IsIndex() {
		lookup = content.NewPath(p.Components()[:p.Len()-1]...)
		index = last.Index
	}
	res := s.contentAtPath(lookup)
	c, _ := res.Container()

	if res.Object == nil || c == nil || (res.Object == content.Object(s.root) && lookup.Len() > 0) {
		return content.NullPointer, apperrors.WithMetadata(apperrors.CodePathNotFound,
			fmt.Sprintf("Failed to find content at path '%s', and no approximation of it was possible.", p),
			map[string]string{"path": p.String()})
	}
	if res.Approximate {
		s.warning(fmt.Sprintf("Failed to find content at path '%s', so it was approximated to: '%s'.", p, content.PathOf(res.Object)))
	}
	return content.Pointer{Container: c, Index: index}, nil
}

func (s *Story) knotContainerWithName(name string) (*content.Container, bool) {
	obj, ok := s.root.Named(name)
	if !ok {
		return nil, false
	}
	return content.AsContainer(obj)
}
