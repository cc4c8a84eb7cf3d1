package modify

import (
	"context"
	"fmt"

	"github.com/teranos/modx/document"
)

// testRow is a register slice; registers past the end read as none.
type testRow []document.Value

func (r testRow) Value(reg RegisterID) document.Value {
	if reg < 0 || int(reg) >= len(r) {
		return document.None()
	}
	return r[reg]
}

func docRow(docs ...string) testRow {
	row := make(testRow, len(docs))
	for i, d := range docs {
		if d == "" {
			continue
		}
		row[i] = document.MustParse(d)
	}
	return row
}

// sliceSource yields rows in order. A position listed in suspendBefore
// reports Suspended once before its row is returned.
type sliceSource struct {
	rows          []Row
	pos           int
	fetches       int
	suspendBefore map[int]bool
}

func (s *sliceSource) FetchRow(ctx context.Context) (FetchStatus, Row, error) {
	s.fetches++
	if s.suspendBefore[s.pos] {
		delete(s.suspendBefore, s.pos)
		return Suspended, nil, nil
	}
	if s.pos >= len(s.rows) {
		return Done, nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return HasMore, row, nil
}

type funcSource func(ctx context.Context) (FetchStatus, Row, error)

func (f funcSource) FetchRow(ctx context.Context) (FetchStatus, Row, error) { return f(ctx) }

type sinkEntry struct {
	row    Row
	copied bool
	newDoc document.Value
	oldDoc document.Value
}

type recordingSink struct {
	entries []sinkEntry
	batches int
}

func (s *recordingSink) CopyRow(row Row) {
	s.entries = append(s.entries, sinkEntry{row: row, copied: true})
}

func (s *recordingSink) Emit(row Row, newDoc, oldDoc document.Value) {
	s.entries = append(s.entries, sinkEntry{row: row, newDoc: newDoc, oldDoc: oldDoc})
}

func (s *recordingSink) AdvanceBatch() { s.batches++ }

// scriptedGateway records every request and answers with fn.
type scriptedGateway struct {
	calls []Request
	fn    func(req Request) (Result, error)
}

func (g *scriptedGateway) Apply(ctx context.Context, req Request) (Result, error) {
	g.calls = append(g.calls, req)
	return g.fn(req)
}

func okResult(req Request) (Result, error) {
	res := make(Result, len(req.Documents))
	for i, doc := range req.Documents {
		res[i] = ResultEntry{Key: keyHint(doc), New: doc, Old: document.None()}
	}
	return res, nil
}

// memGateway is a map-backed gateway with just enough storage semantics
// for pipeline tests.
type memGateway struct {
	docs  map[string]document.Value
	seq   int
	calls []Request
}

func newMemGateway(seed ...string) *memGateway {
	g := &memGateway{docs: make(map[string]document.Value)}
	for _, s := range seed {
		doc := document.MustParse(s)
		g.docs[doc.Get(document.KeyAttribute).StringValue()] = doc
	}
	return g
}

func (g *memGateway) Apply(ctx context.Context, req Request) (Result, error) {
	g.calls = append(g.calls, req)
	res := make(Result, len(req.Documents))
	for i, doc := range req.Documents {
		res[i] = g.applyOne(req.Operation, doc, req.Options)
	}
	return res, nil
}

func (g *memGateway) applyOne(op Operation, doc document.Value, opts OperationConfig) ResultEntry {
	key := doc.Get(document.KeyAttribute).StringValue()
	old, exists := g.docs[key]
	body := doc.Without(document.RevAttribute)

	switch op {
	case OpInsert:
		if !doc.IsObject() {
			return ResultEntry{Err: NewError(CodeDocumentTypeInvalid)}
		}
		if key == "" {
			g.seq++
			key = fmt.Sprint(g.seq)
			exists = false
		}
		if exists && !opts.Overwrite {
			return ResultEntry{Err: NewError(CodeUniqueConstraintViolated)}
		}
		stored := body.Clone()
		if exists && !opts.IsReplace {
			stored = document.Merge(old, body, opts.KeepNull, opts.MergeObjects)
		}
		stored.Set(document.KeyAttribute, document.String(key))
		g.docs[key] = stored
		return ResultEntry{Key: key, New: stored, Old: old}
	case OpUpdate, OpReplace:
		if !exists {
			return ResultEntry{Err: NewError(CodeDocumentNotFound)}
		}
		stored := body.Clone()
		if op == OpUpdate {
			stored = document.Merge(old, body, opts.KeepNull, opts.MergeObjects)
		}
		stored.Set(document.KeyAttribute, document.String(key))
		g.docs[key] = stored
		return ResultEntry{Key: key, New: stored, Old: old}
	case OpRemove:
		if !exists {
			return ResultEntry{Err: NewError(CodeDocumentNotFound)}
		}
		delete(g.docs, key)
		return ResultEntry{Key: key, Old: old}
	case OpLookup:
		if !exists {
			return ResultEntry{Err: NewError(CodeDocumentNotFound)}
		}
		return ResultEntry{Key: key, New: old}
	}
	return ResultEntry{Err: NewErrorf(CodeDocumentTypeInvalid, "unsupported operation %s", op)}
}

func registers(doc, key, insert, update, outNew, outOld RegisterID) Registers {
	return Registers{Document: doc, Key: key, Insert: insert, Update: update, OutputNew: outNew, OutputOld: outOld}
}
