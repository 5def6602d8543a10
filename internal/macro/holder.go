package macro

import "sync/atomic"

// Holder publishes the current tree to concurrent readers. A library reload
// swaps the whole tree; readers always see either the old or the new one.
type Holder struct {
	tree atomic.Pointer[Tree]
}

// NewHolder creates a holder containing t.
func NewHolder(t *Tree) *Holder {
	h := &Holder{}
	h.Set(t)
	return h
}

// Tree returns the current tree. It is never nil.
func (h *Holder) Tree() *Tree {
	if t := h.tree.Load(); t != nil {
		return t
	}
	return NewTree()
}

// Set replaces the current tree.
func (h *Holder) Set(t *Tree) {
	h.tree.Store(t)
}
