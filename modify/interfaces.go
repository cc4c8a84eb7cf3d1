package modify

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/teranos/modx/document"
)

// Row is a read-only handle to one upstream tuple.
type Row interface {
	Value(reg RegisterID) document.Value
}

// FetchStatus is the upstream state reported alongside a fetched row.
type FetchStatus uint8

const (
	// HasMore: a row was returned and more may follow.
	HasMore FetchStatus = iota
	// Done: upstream is exhausted. The returned row, if any, is the last one.
	Done
	// Suspended: no row is ready yet; call again later.
	Suspended
)

func (s FetchStatus) String() string {
	switch s {
	case HasMore:
		return "has-more"
	case Done:
		return "done"
	case Suspended:
		return "suspended"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// RowSource is the upstream collaborator the pipeline pulls rows from.
type RowSource interface {
	FetchRow(ctx context.Context) (FetchStatus, Row, error)
}

// OutputSink receives the rows a cycle produces, in input order.
type OutputSink interface {
	// CopyRow forwards row unchanged.
	CopyRow(row Row)
	// Emit forwards row with the requested documents. A None document was
	// not requested and leaves its output register untouched.
	Emit(row Row, newDoc, oldDoc document.Value)
	// AdvanceBatch marks the end of one cycle's output.
	AdvanceBatch()
}

// Operation is the storage primitive a Request invokes.
type Operation uint8

const (
	OpInsert Operation = iota
	OpRemove
	OpUpdate
	OpReplace
	OpLookup
)

func (o Operation) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpUpdate:
		return "update"
	case OpReplace:
		return "replace"
	case OpLookup:
		return "lookup"
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

// Request is one batched call to the storage gateway.
type Request struct {
	Collection string
	Operation  Operation
	Documents  []document.Value
	Options    OperationConfig
}

// ResultEntry is the outcome for one submitted document.
type ResultEntry struct {
	// Err is set when the document failed; the other fields are then empty.
	Err *Error

	ID     string
	Key    string
	Rev    string
	OldRev string
	// Old and New are None unless requested (or, for lookups, New holds
	// the stored document).
	Old document.Value
	New document.Value
}

// Failed reports whether the entry carries a per-document error.
func (e ResultEntry) Failed() bool { return e.Err != nil }

// Result is positionally aligned with Request.Documents.
type Result []ResultEntry

func (r Result) failed() bool {
	for _, entry := range r {
		if entry.Failed() {
			return true
		}
	}
	return false
}

// Gateway submits one accumulated sequence as a single transaction. An error
// return means the call itself failed; per-document failures are reported
// inside the Result.
type Gateway interface {
	Apply(ctx context.Context, req Request) (Result, error)
}

// WriteFilter decides whether a document must bypass storage.
type WriteFilter interface {
	Skip(doc document.Value, key string) bool
}

// WriteFilterFunc adapts a function to WriteFilter.
type WriteFilterFunc func(doc document.Value, key string) bool

func (f WriteFilterFunc) Skip(doc document.Value, key string) bool { return f(doc, key) }

// Counters receives write statistics.
type Counters interface {
	AddWritesExecuted(n int)
	AddWritesIgnored(n int)
}

// Stats is an in-memory Counters.
type Stats struct {
	executed atomic.Int64
	ignored  atomic.Int64
}

func (s *Stats) AddWritesExecuted(n int) { s.executed.Add(int64(n)) }
func (s *Stats) AddWritesIgnored(n int)  { s.ignored.Add(int64(n)) }

// WritesExecuted returns the number of documents successfully written.
func (s *Stats) WritesExecuted() int64 { return s.executed.Load() }

// WritesIgnored returns the number of rows whose errors were ignored.
func (s *Stats) WritesIgnored() int64 { return s.ignored.Load() }

type noCounters struct{}

func (noCounters) AddWritesExecuted(int) {}
func (noCounters) AddWritesIgnored(int)  {}
