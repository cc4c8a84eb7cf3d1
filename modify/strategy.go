package modify

import (
	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
)

// strategy is the per-kind classification step. classify returns the row's
// tag and, for tags with a target, the document to accumulate. A non-nil
// error always comes with TagSkipRow.
type strategy interface {
	classify(row Row) (OperationTag, document.Value, error)
	// operation is the storage primitive used to apply a target's batch.
	operation(t target) Operation
}

type strategyBase struct {
	cfg    OperationConfig
	regs   Registers
	filter WriteFilter
}

func (s strategyBase) bypass(doc document.Value, key string) bool {
	return ShouldBypass(s.cfg, s.filter, doc, key)
}

func newStrategy(kind Kind, cfg OperationConfig, regs Registers, filter WriteFilter) (strategy, error) {
	base := strategyBase{cfg: cfg, regs: regs, filter: filter}
	switch kind {
	case KindInsert:
		return insertStrategy{base}, nil
	case KindRemove:
		return removeStrategy{base}, nil
	case KindReplace:
		return updateReplaceStrategy{strategyBase: base, op: OpReplace}, nil
	case KindUpdate:
		return updateReplaceStrategy{strategyBase: base, op: OpUpdate}, nil
	case KindUpsert:
		op := OpUpdate
		if cfg.IsReplace {
			op = OpReplace
		}
		return upsertStrategy{strategyBase: base, updateOp: op}, nil
	}
	return nil, errors.NewInvalidRequestError("unknown modification kind %s", kind)
}

// insertStrategy submits the Document role as-is. Shape errors are left to
// the storage, which reports them per document.
type insertStrategy struct{ strategyBase }

func (s insertStrategy) classify(row Row) (OperationTag, document.Value, error) {
	doc := value(row, s.regs.Document)
	if s.bypass(doc, keyHint(doc)) {
		return TagCopyRow, document.None(), nil
	}
	return TagApplyReturn, doc, nil
}

func (insertStrategy) operation(target) Operation { return OpInsert }

// removeStrategy submits a {_key, _rev} document built from the Document role.
type removeStrategy struct{ strategyBase }

func (s removeStrategy) classify(row Row) (OperationTag, document.Value, error) {
	doc := value(row, s.regs.Document)
	if s.bypass(doc, keyHint(doc)) {
		return TagCopyRow, document.None(), nil
	}
	key, rev, err := ExtractKeyAndRevision(doc, !s.cfg.IgnoreRevs)
	if err != nil {
		return TagSkipRow, document.None(), err
	}
	return TagApplyReturn, BuildKeyDocument(key, rev, s.cfg.IgnoreRevs), nil
}

func (removeStrategy) operation(target) Operation { return OpRemove }

// updateReplaceStrategy serves both UPDATE and REPLACE. When the Key role is
// bound the identity comes from it and never from the document, so a _rev
// left over inside the document cannot be reused by accident.
type updateReplaceStrategy struct {
	strategyBase
	op Operation
}

func (s updateReplaceStrategy) classify(row Row) (OperationTag, document.Value, error) {
	doc := value(row, s.regs.Document)
	source := doc
	if s.regs.Key != NoRegister {
		source = row.Value(s.regs.Key)
	}
	if s.bypass(doc, keyHint(source)) {
		return TagCopyRow, document.None(), nil
	}
	if !doc.IsObject() {
		return TagSkipRow, document.None(), NewErrorf(CodeDocumentTypeInvalid,
			"expected %s document to be an object, got %s", s.op, doc.Type())
	}
	key, rev, err := ExtractKeyAndRevision(source, !s.cfg.IgnoreRevs)
	if err != nil {
		return TagSkipRow, document.None(), err
	}
	return TagApplyReturn, document.Overlay(doc, BuildKeyDocument(key, rev, s.cfg.IgnoreRevs)), nil
}

func (s updateReplaceStrategy) operation(target) Operation { return s.op }

// upsertStrategy routes a row to the update accumulator when the Document
// role holds the matched (object) document, and to the insert accumulator
// otherwise. The write filter sees the value about to be written: the update
// value under the matched document's key, or the insert value.
type upsertStrategy struct {
	strategyBase
	updateOp Operation
}

func (s upsertStrategy) classify(row Row) (OperationTag, document.Value, error) {
	match := value(row, s.regs.Document)
	if match.IsObject() {
		patch := value(row, s.regs.Update)
		if s.bypass(patch, keyHint(match)) {
			return TagCopyRow, document.None(), nil
		}
		key, rev, err := ExtractKeyAndRevision(match, !s.cfg.IgnoreRevs)
		if err != nil {
			return TagSkipRow, document.None(), err
		}
		if !patch.IsObject() {
			return TagSkipRow, document.None(), NewErrorf(CodeDocumentTypeInvalid,
				"expected upsert update value to be an object, got %s", patch.Type())
		}
		return TagApplyUpdate, document.Overlay(patch, BuildKeyDocument(key, rev, s.cfg.IgnoreRevs)), nil
	}

	insert := value(row, s.regs.Insert)
	if s.bypass(insert, keyHint(insert)) {
		return TagCopyRow, document.None(), nil
	}
	if !insert.IsObject() {
		return TagSkipRow, document.None(), NewErrorf(CodeDocumentTypeInvalid,
			"expected upsert insert value to be an object, got %s", insert.Type())
	}
	return TagApplyInsert, insert, nil
}

func (s upsertStrategy) operation(t target) Operation {
	if t == targetUpdate {
		return s.updateOp
	}
	return OpInsert
}
