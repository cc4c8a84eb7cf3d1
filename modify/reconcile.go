package modify

import (
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
)

// resultCursor walks one result sequence. Advancing past the end is an
// assertion failure instead of a silent misalignment.
type resultCursor struct {
	target  target
	entries Result
	docs    []document.Value
	pos     int
}

func (c *resultCursor) next() (ResultEntry, document.Value, error) {
	if c.pos >= len(c.entries) {
		return ResultEntry{}, document.None(), errors.AssertionFailedf(
			"%s result cursor advanced past %d entries", c.target, len(c.entries))
	}
	entry, doc := c.entries[c.pos], c.docs[c.pos]
	c.pos++
	return entry, doc, nil
}

func (c *resultCursor) finish() error {
	if c.pos != len(c.entries) {
		return errors.AssertionFailedf(
			"%s result cursor consumed %d of %d entries", c.target, c.pos, len(c.entries))
	}
	return nil
}

type cursors [numTargets]resultCursor

func (m *modifier) cursors() cursors {
	var cs cursors
	for t := target(0); t < numTargets; t++ {
		cs[t] = resultCursor{target: t, entries: m.results[t], docs: m.accs[t].Documents()}
	}
	return cs
}

// reconcileStats summarises one reconciliation.
type reconcileStats struct {
	emitted  int
	executed int
	ignored  int
}

// reconcile walks the tagged rows in input order and emits their output.
//
// With IgnoreErrors unset the first failed entry, in row order, is returned
// before anything is emitted, so an aborted cycle leaves no partial output.
func (m *modifier) reconcile(sink OutputSink) (reconcileStats, error) {
	var stats reconcileStats

	if !m.cfg.IgnoreErrors {
		if err := m.firstError(); err != nil {
			return stats, err
		}
	}

	cs := m.cursors()
	for _, tr := range m.rows {
		t, ok := targetOf(tr.tag)
		if !ok {
			if tr.tag == TagCopyRow {
				sink.CopyRow(tr.row)
				stats.emitted++
			}
			continue
		}
		entry, _, err := cs[t].next()
		if err != nil {
			return stats, err
		}
		if entry.Failed() {
			stats.ignored++
			continue
		}
		stats.executed++
		stats.emitted++
		emitEntry(sink, tr.row, entry, m.cfg)
	}
	for t := range cs {
		if err := cs[t].finish(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// firstError returns the first failed entry in row order, hinted with the
// key of the document that produced it. Rows of a target that transact never
// submitted are passed over.
func (m *modifier) firstError() error {
	cs := m.cursors()
	for _, tr := range m.rows {
		t, ok := targetOf(tr.tag)
		if !ok || m.results[t] == nil {
			continue
		}
		entry, doc, err := cs[t].next()
		if err != nil {
			return err
		}
		if entry.Failed() {
			if key := keyHint(doc); key != "" {
				return errors.WithHintf(entry.Err, "document key %q", key)
			}
			return entry.Err
		}
	}
	return nil
}

// emitEntry maps one successful entry onto the output row. A requested
// document that the entry lacks is emitted as null, never omitted.
func emitEntry(sink OutputSink, row Row, entry ResultEntry, cfg OperationConfig) {
	if cfg.Silent() {
		sink.CopyRow(row)
		return
	}
	newDoc, oldDoc := document.None(), document.None()
	if cfg.ReturnNew {
		newDoc = orNull(entry.New)
	}
	if cfg.ReturnOld {
		oldDoc = orNull(entry.Old)
	}
	sink.Emit(row, newDoc, oldDoc)
}

func orNull(v document.Value) document.Value {
	if v.IsNone() {
		return document.Null()
	}
	return v
}
