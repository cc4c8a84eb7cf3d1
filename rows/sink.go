package rows

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
)

// Collector is an in-memory modify.OutputSink.
type Collector struct {
	regs    modify.Registers
	rows    []Row
	batches []int
}

// NewCollector returns a collector writing returned documents to the
// output registers of regs.
func NewCollector(regs modify.Registers) *Collector {
	return &Collector{regs: regs}
}

func (c *Collector) CopyRow(row modify.Row) {
	c.rows = append(c.rows, snapshot(row))
}

func (c *Collector) Emit(row modify.Row, newDoc, oldDoc document.Value) {
	c.rows = append(c.rows, withOutputs(snapshot(row), c.regs, newDoc, oldDoc))
}

func (c *Collector) AdvanceBatch() {
	c.batches = append(c.batches, len(c.rows))
}

// Rows returns every collected row.
func (c *Collector) Rows() []Row { return c.rows }

// Batches returns the cumulative row count at the end of each cycle.
func (c *Collector) Batches() []int { return c.batches }

func withOutputs(row Row, regs modify.Registers, newDoc, oldDoc document.Value) Row {
	if !newDoc.IsNone() && regs.OutputNew != modify.NoRegister {
		row = row.With(regs.OutputNew, newDoc)
	}
	if !oldDoc.IsNone() && regs.OutputOld != modify.NoRegister {
		row = row.With(regs.OutputOld, oldDoc)
	}
	return row
}

// JSONWriter writes each output row as one JSON line of its roles and
// flushes at every batch boundary.
type JSONWriter struct {
	regs modify.Registers
	w    *bufio.Writer
	rows int
	err  error
}

// NewJSONWriter returns a sink writing to w.
func NewJSONWriter(w io.Writer, regs modify.Registers) *JSONWriter {
	return &JSONWriter{regs: regs, w: bufio.NewWriter(w)}
}

func (j *JSONWriter) CopyRow(row modify.Row) {
	j.write(snapshot(row))
}

func (j *JSONWriter) Emit(row modify.Row, newDoc, oldDoc document.Value) {
	j.write(withOutputs(snapshot(row), j.regs, newDoc, oldDoc))
}

func (j *JSONWriter) AdvanceBatch() {
	if j.err == nil {
		j.err = errors.Wrap(j.w.Flush(), "flush output")
	}
}

func (j *JSONWriter) write(row Row) {
	if j.err != nil {
		return
	}
	data, err := json.Marshal(row)
	if err != nil {
		j.err = errors.Wrap(err, "encode output row")
		return
	}
	data = append(data, '\n')
	if _, err := j.w.Write(data); err != nil {
		j.err = errors.Wrap(err, "write output row")
		return
	}
	j.rows++
}

// Close flushes buffered output and returns the first write error.
func (j *JSONWriter) Close() error {
	if j.err != nil {
		return j.err
	}
	return errors.Wrap(j.w.Flush(), "flush output")
}

// Rows returns the number of rows written.
func (j *JSONWriter) Rows() int { return j.rows }
