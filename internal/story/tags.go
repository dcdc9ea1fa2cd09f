package story

import (
	"fmt"
	"strings"

	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// GlobalTags returns the tags at the very top of the story.
func (s *Story) GlobalTags() ([]string, error) {
	return s.tagsAtStartOfFlowContainer(content.NewPath())
}

// TagsForContentAtPath returns the tags at the start of a knot or stitch.
func (s *Story) TagsForContentAtPath(path string) ([]string, error) {
	return s.tagsAtStartOfFlowContainer(content.ParsePath(path))
}

func (s *Story) tagsAtStartOfFlowContainer(p *content.Path) ([]string, error) {
	found, ok := s.contentAtPath(p).CorrectObj()
	c, isContainer := content.AsContainer(found)
	if !ok || !isContainer {
		return nil, pathNotFound(fmt.Sprintf("no container at path '%s'", p), p)
	}
	for c.Len() > 0 {
		first, ok := c.Content()[0].(*content.Container)
		if !ok {
			break
		}
		c = first
	}

	var tags []string
	inTag := false
scan:
	for _, obj := range c.Content() {
		switch o := obj.(type) {
		case *content.ControlCommand:
			switch o.Type {
			case content.CommandBeginTag:
				inTag = true
			case content.CommandEndTag:
				inTag = false
			}
		case *content.Tag:
			tags = append(tags, o.Text)
		default:
			if !inTag {
				break scan
			}
			v, ok := obj.(*value.Value)
			if !ok || v.Type() != value.TypeString {
				return nil, runtimeError("Tag contained non-text content. Only plain text is allowed when using globalTags or TagsAtContentPath. If you want to evaluate dynamic content, you need to use story.Continue().")
			}
			text, _ := v.AsString()
			tags = append(tags, strings.TrimSpace(text))
		}
	}
	return tags, nil
}
