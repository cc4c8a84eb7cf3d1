package modify

import (
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
)

// Accumulator is the ordered payload of one gateway call.
type Accumulator struct {
	docs   []document.Value
	closed bool
}

// Add appends doc. Adding to a closed accumulator is a programming error.
func (a *Accumulator) Add(doc document.Value) {
	if a.closed {
		panic(errors.AssertionFailedf("add to closed accumulator"))
	}
	a.docs = append(a.docs, doc)
}

// Close freezes the accumulator for submission.
func (a *Accumulator) Close() { a.closed = true }

// Closed reports whether Close was called since the last Reset.
func (a *Accumulator) Closed() bool { return a.closed }

// Documents returns the accumulated payload in insertion order.
func (a *Accumulator) Documents() []document.Value { return a.docs }

// Count returns the number of accumulated documents.
func (a *Accumulator) Count() int { return len(a.docs) }

// Reset empties and reopens the accumulator, keeping its capacity.
func (a *Accumulator) Reset() {
	for i := range a.docs {
		a.docs[i] = document.Value{}
	}
	a.docs = a.docs[:0]
	a.closed = false
}
