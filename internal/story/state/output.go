package state

import (
	"strings"

	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// OutputStream returns the content produced since the last reset.
func (s *State) OutputStream() []content.Object {
	return s.current.OutputStream
}

// ResetOutput replaces the output stream, clearing it when objs is nil.
func (s *State) ResetOutput(objs []content.Object) {
	s.current.OutputStream = append([]content.Object(nil), objs...)
}

// PopFromOutputStream drops the last n objects.
func (s *State) PopFromOutputStream(n int) {
	out := s.current.OutputStream
	s.current.OutputStream = out[:len(out)-n]
}

// PushToOutputStream appends obj, splitting strings with leading or
// trailing newlines so that glue and newline rules apply to each part.
func (s *State) PushToOutputStream(obj content.Object) {
	if text, ok := obj.(*value.Value); ok && text.Type() == value.TypeString {
		if parts := splitHeadTailWhitespace(text.String()); parts != nil {
			for _, p := range parts {
				s.pushToOutputStreamIndividual(value.String(p))
			}
			return
		}
	}
	s.pushToOutputStreamIndividual(obj)
}

// splitHeadTailWhitespace splits off newlines, and the inline whitespace
// around them, from both ends of str. It returns nil when there is nothing
// to split.
func splitHeadTailWhitespace(str string) []string {
	headFirstNewline, headLastNewline := -1, -1
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c == '\n' {
			if headFirstNewline == -1 {
				headFirstNewline = i
			}
			headLastNewline = i
		} else if c != ' ' && c != '\t' {
			break
		}
	}
	tailLastNewline, tailFirstNewline := -1, -1
	for i := len(str) - 1; i >= 0; i-- {
		c := str[i]
		if c == '\n' {
			if tailLastNewline == -1 {
				tailLastNewline = i
			}
			tailFirstNewline = i
		} else if c != ' ' && c != '\t' {
			break
		}
	}
	if headFirstNewline == -1 && tailLastNewline == -1 {
		return nil
	}

	var parts []string
	innerStart, innerEnd := 0, len(str)
	if headFirstNewline != -1 {
		if headFirstNewline > 0 {
			parts = append(parts, str[:headFirstNewline])
		}
		parts = append(parts, "\n")
		innerStart = headLastNewline + 1
	}
	if tailLastNewline != -1 {
		innerEnd = tailFirstNewline
	}
	if innerEnd > innerStart {
		parts = append(parts, str[innerStart:innerEnd])
	}
	if tailLastNewline != -1 && tailFirstNewline > headLastNewline {
		parts = append(parts, "\n")
		if tailLastNewline < len(str)-1 {
			parts = append(parts, str[tailLastNewline+1:])
		}
	}
	return parts
}

func (s *State) pushToOutputStreamIndividual(obj content.Object) {
	include := true
	switch o := obj.(type) {
	case *content.Glue:
		s.TrimNewlinesFromOutputStream()
	case *value.Value:
		if o.Type() != value.TypeString {
			break
		}
		functionTrimIndex := -1
		el := s.current.CallStack.CurrentElement()
		if el.Type == content.PushPopFunction {
			functionTrimIndex = el.FunctionStartInOutputStream
		}

		glueTrimIndex := -1
		out := s.current.OutputStream
		for i := len(out) - 1; i >= 0; i-- {
			if _, ok := out[i].(*content.Glue); ok {
				glueTrimIndex = i
				break
			}
			if isCommand(out[i], content.CommandBeginString) {
				if i >= functionTrimIndex {
					functionTrimIndex = -1
				}
				break
			}
		}

		trimIndex := functionTrimIndex
		switch {
		case glueTrimIndex != -1 && functionTrimIndex != -1:
			trimIndex = min(glueTrimIndex, functionTrimIndex)
		case glueTrimIndex != -1:
			trimIndex = glueTrimIndex
		}

		if trimIndex != -1 {
			if o.IsNewline() {
				include = false
			} else if o.IsNonWhitespace() {
				if glueTrimIndex > -1 {
					s.removeExistingGlue()
				}
				if functionTrimIndex > -1 {
					els := s.current.CallStack.Elements()
					for i := len(els) - 1; i >= 0; i-- {
						if els[i].Type != content.PushPopFunction {
							break
						}
						els[i].FunctionStartInOutputStream = -1
					}
				}
			}
		} else if o.IsNewline() {
			if s.OutputStreamEndsInNewline() || !s.OutputStreamContainsContent() {
				include = false
			}
		}
	}
	if include {
		s.current.OutputStream = append(s.current.OutputStream, obj)
	}
}

func isCommand(obj content.Object, t content.CommandType) bool {
	c, ok := obj.(*content.ControlCommand)
	return ok && c.Type == t
}

func asString(obj content.Object) (*value.Value, bool) {
	v, ok := obj.(*value.Value)
	if !ok || v.Type() != value.TypeString {
		return nil, false
	}
	return v, true
}

// TrimNewlinesFromOutputStream removes the trailing newline, and any text
// after it, so glue can join the next line to this one.
func (s *State) TrimNewlinesFromOutputStream() {
	out := s.current.OutputStream
	removeFrom := -1
	for i := len(out) - 1; i >= 0; i-- {
		if _, ok := out[i].(*content.ControlCommand); ok {
			break
		}
		txt, ok := asString(out[i])
		if ok && txt.IsNonWhitespace() {
			break
		}
		if ok && txt.IsNewline() {
			removeFrom = i
		}
	}
	if removeFrom < 0 {
		return
	}
	kept := out[:removeFrom]
	for _, obj := range out[removeFrom:] {
		if _, ok := asString(obj); !ok {
			kept = append(kept, obj)
		}
	}
	s.current.OutputStream = kept
}

func (s *State) removeExistingGlue() {
	out := s.current.OutputStream
	for i := len(out) - 1; i >= 0; i-- {
		if _, ok := out[i].(*content.Glue); ok {
			out = append(out[:i], out[i+1:]...)
		} else if _, ok := out[i].(*content.ControlCommand); ok {
			break
		}
	}
	s.current.OutputStream = out
}

func (s *State) trimWhitespaceFromFunctionEnd() {
	start := s.current.CallStack.CurrentElement().FunctionStartInOutputStream
	if start == -1 {
		start = 0
	}
	out := s.current.OutputStream
	for i := len(out) - 1; i >= start; i-- {
		txt, ok := asString(out[i])
		if !ok {
			continue
		}
		if txt.IsNewline() || txt.IsInlineWhitespace() {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		break
	}
	s.current.OutputStream = out
}

// OutputStreamEndsInNewline reports whether the last visible text is a
// newline.
func (s *State) OutputStreamEndsInNewline() bool {
	out := s.current.OutputStream
	for i := len(out) - 1; i >= 0; i-- {
		if _, ok := out[i].(*content.ControlCommand); ok {
			break
		}
		if txt, ok := asString(out[i]); ok {
			if txt.IsNewline() {
				return true
			}
			if txt.IsNonWhitespace() {
				break
			}
		}
	}
	return false
}

// OutputStreamContainsContent reports whether any text has been output.
func (s *State) OutputStreamContainsContent() bool {
	for _, obj := range s.current.OutputStream {
		if _, ok := asString(obj); ok {
			return true
		}
	}
	return false
}

// InStringEvaluation reports whether a string is being built for the
// evaluation stack.
func (s *State) InStringEvaluation() bool {
	out := s.current.OutputStream
	for i := len(out) - 1; i >= 0; i-- {
		if isCommand(out[i], content.CommandBeginString) {
			return true
		}
	}
	return false
}

// CurrentText returns the text of the output stream, without tags, with
// inline whitespace collapsed.
func (s *State) CurrentText() string {
	var b strings.Builder
	inTag := false
	for _, obj := range s.current.OutputStream {
		if txt, ok := asString(obj); ok {
			if !inTag {
				b.WriteString(txt.String())
			}
			continue
		}
		if c, ok := obj.(*content.ControlCommand); ok {
			switch c.Type {
			case content.CommandBeginTag:
				inTag = true
			case content.CommandEndTag:
				inTag = false
			}
		}
	}
	return CleanOutputWhitespace(b.String())
}

// CurrentTags returns the tags in the output stream, in order.
func (s *State) CurrentTags() []string {
	var tags []string
	var b strings.Builder
	inTag := false
	flush := func() {
		if b.Len() > 0 {
			tags = append(tags, CleanOutputWhitespace(b.String()))
			b.Reset()
		}
	}
	for _, obj := range s.current.OutputStream {
		switch o := obj.(type) {
		case *content.ControlCommand:
			switch o.Type {
			case content.CommandBeginTag:
				if inTag {
					flush()
				}
				inTag = true
			case content.CommandEndTag:
				flush()
				inTag = false
			}
		case *content.Tag:
			if !inTag && o.Text != "" {
				tags = append(tags, o.Text)
			}
		default:
			if txt, ok := asString(obj); ok && inTag {
				b.WriteString(txt.String())
			}
		}
	}
	flush()
	return tags
}

// CleanOutputWhitespace collapses runs of inline whitespace into a single
// space and drops it at the start and end of lines.
func CleanOutputWhitespace(str string) string {
	var b strings.Builder
	b.Grow(len(str))
	wsStart := -1
	lineStart := 0
	for i := 0; i < len(str); i++ {
		c := str[i]
		inline := c == ' ' || c == '\t'
		if inline && wsStart == -1 {
			wsStart = i
		}
		if !inline {
			if c != '\n' && wsStart > 0 && wsStart != lineStart {
				b.WriteByte(' ')
			}
			wsStart = -1
		}
		if c == '\n' {
			lineStart = i + 1
		}
		if !inline {
			b.WriteByte(c)
		}
	}
	return b.String()
}
