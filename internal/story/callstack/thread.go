package callstack

import "github.com/louisbranch/storyloom/internal/story/content"

// Thread is an identified stack of frames. The index is assigned when the
// thread is created and survives copies and snapshots, so a choice can find
// the thread it was generated on.
type Thread struct {
	Elements        []*Element
	Index           int
	PreviousPointer content.Pointer
}

// NewThread returns an empty thread with index 0.
func NewThread() *Thread {
	return &Thread{PreviousPointer: content.NullPointer}
}

// Copy returns an independent thread with the same index and frames. The
// frames and their temporaries are duplicated.
func (t *Thread) Copy() *Thread {
	out := &Thread{
		Elements:        make([]*Element, len(t.Elements)),
		Index:           t.Index,
		PreviousPointer: t.PreviousPointer,
	}
	for i, el := range t.Elements {
		out.Elements[i] = el.Copy()
	}
	return out
}
