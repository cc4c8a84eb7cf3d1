package modify

import (
	"context"
	"fmt"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"go.uber.org/zap"
)

// PointOperation is the operation run by a SingleRowExecutor.
type PointOperation uint8

const (
	PointLookup PointOperation = iota
	PointInsert
	PointRemove
	PointUpdate
	PointReplace
	PointUpsert
)

func (p PointOperation) String() string {
	switch p {
	case PointLookup:
		return "lookup"
	case PointInsert:
		return "insert"
	case PointRemove:
		return "remove"
	case PointUpdate:
		return "update"
	case PointReplace:
		return "replace"
	case PointUpsert:
		return "upsert"
	}
	return fmt.Sprintf("point(%d)", uint8(p))
}

// ParsePointOperation maps an operation name to its PointOperation.
func ParsePointOperation(name string) (PointOperation, bool) {
	for p := PointLookup; p <= PointUpsert; p++ {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}

// ignoresNotFound reports whether a not-found outcome may be skipped.
func (p PointOperation) ignoresNotFound() bool {
	switch p {
	case PointLookup, PointRemove, PointUpdate, PointReplace:
		return true
	}
	return false
}

// SingleInfos configures a SingleRowExecutor.
type SingleInfos struct {
	Operation  PointOperation
	Collection string
	Options    OperationConfig
	Registers  Registers
	// ConstantKey, when set, identifies the document instead of the Key or
	// Document register.
	ConstantKey string

	Gateway  Gateway
	Counters Counters
	Logger   *zap.SugaredLogger
}

// SingleRowExecutor applies exactly one document per row without
// accumulating: the point-operation fast path.
type SingleRowExecutor struct {
	infos    SingleInfos
	counters Counters
	log      *zap.SugaredLogger
}

// NewSingleRowExecutor validates infos and returns a fast-path executor.
func NewSingleRowExecutor(infos SingleInfos) (*SingleRowExecutor, error) {
	if infos.Gateway == nil {
		return nil, errors.NewInvalidRequestError("gateway is required")
	}
	if infos.Operation > PointUpsert {
		return nil, errors.NewInvalidRequestError("unknown point operation %s", infos.Operation)
	}
	if infos.Collection == "" {
		return nil, errors.NewInvalidRequestError("collection name is required")
	}
	regs := infos.Registers
	hasInput := infos.ConstantKey != "" || regs.Document != NoRegister || regs.Key != NoRegister ||
		(infos.Operation == PointUpsert && regs.Insert != NoRegister)
	if !hasInput {
		return nil, errors.NewInvalidRequestError("%s requires a key or document register", infos.Operation)
	}
	if infos.Operation == PointLookup && infos.Registers.OutputNew == NoRegister {
		return nil, errors.NewInvalidRequestError("lookup requires an output register")
	}
	if infos.Options.ReturnNew && infos.Registers.OutputNew == NoRegister {
		return nil, errors.NewInvalidRequestError("returnNew requires an output register")
	}
	if infos.Options.ReturnOld && infos.Registers.OutputOld == NoRegister {
		return nil, errors.NewInvalidRequestError("returnOld requires an output register")
	}
	counters := infos.Counters
	if counters == nil {
		counters = noCounters{}
	}
	return &SingleRowExecutor{
		infos:    infos,
		counters: counters,
		log: logger.AddOperationSymbol(logger.OrGlobal(infos.Logger), infos.Operation.String()).
			With(logger.FieldCollection, infos.Collection),
	}, nil
}

// Execute applies the operation for row. It returns false, with a nil error,
// when the row produces no output: an ignored error, or a not-found lookup,
// update, replace or remove under IgnoreDocumentNotFound.
func (s *SingleRowExecutor) Execute(ctx context.Context, row Row, sink OutputSink) (bool, error) {
	cfg := s.infos.Options
	req, err := s.buildRequest(row)
	if err != nil {
		if cfg.IgnoreErrors {
			s.counters.AddWritesIgnored(1)
			s.log.Debugw("Ignoring invalid input", logger.FieldError, err)
			return false, nil
		}
		return false, err
	}

	s.log.Debugw("Submitting point operation", logger.FieldOperation, req.Operation.String())
	res, err := s.infos.Gateway.Apply(context.WithoutCancel(ctx), req)
	if err != nil {
		return false, newFatal(s.infos.Collection, err)
	}
	if len(res) != 1 {
		return false, newFatal(s.infos.Collection, errors.AssertionFailedf(
			"point result has %d entries for 1 document", len(res)))
	}

	entry := res[0]
	if entry.Failed() {
		notFound := entry.Err.Code == CodeDocumentNotFound
		if notFound && s.infos.Operation.ignoresNotFound() && cfg.IgnoreDocumentNotFound {
			s.log.Debugw("Document not found", logger.FieldKey, keyHint(req.Documents[0]))
			return false, nil
		}
		if cfg.IgnoreErrors {
			s.counters.AddWritesIgnored(1)
			s.log.Debugw("Ignoring failed point operation", logger.FieldError, entry.Err)
			return false, nil
		}
		if key := keyHint(req.Documents[0]); key != "" {
			return false, errors.WithHintf(entry.Err, "document key %q", key)
		}
		return false, entry.Err
	}

	if s.infos.Operation == PointLookup {
		sink.Emit(row, orNull(entry.New), document.None())
		return true, nil
	}
	s.counters.AddWritesExecuted(1)
	emitEntry(sink, row, entry, cfg)
	return true, nil
}

func (s *SingleRowExecutor) buildRequest(row Row) (Request, error) {
	cfg := s.infos.Options
	regs := s.infos.Registers
	req := Request{Collection: s.infos.Collection, Options: cfg}

	switch s.infos.Operation {
	case PointInsert, PointUpsert:
		doc := value(row, regs.Document)
		if s.infos.Operation == PointUpsert {
			if regs.Insert != NoRegister {
				doc = row.Value(regs.Insert)
			}
			req.Options.Overwrite = true
		}
		if s.infos.ConstantKey != "" {
			if !doc.IsObject() {
				return req, NewErrorf(CodeDocumentTypeInvalid, "expected document to be an object, got %s", doc.Type())
			}
			key := document.NewObject()
			key.Set(document.KeyAttribute, document.String(s.infos.ConstantKey))
			doc = document.Overlay(doc, key)
		}
		req.Operation = OpInsert
		req.Documents = []document.Value{doc}

	case PointUpdate, PointReplace:
		doc := value(row, regs.Document)
		if !doc.IsObject() {
			return req, NewErrorf(CodeDocumentTypeInvalid, "expected document to be an object, got %s", doc.Type())
		}
		key, rev, err := s.identity(row, doc)
		if err != nil {
			return req, err
		}
		req.Operation = OpUpdate
		if s.infos.Operation == PointReplace {
			req.Operation = OpReplace
		}
		req.Documents = []document.Value{document.Overlay(doc, BuildKeyDocument(key, rev, cfg.IgnoreRevs))}

	case PointRemove, PointLookup:
		key, rev, err := s.identity(row, value(row, regs.Document))
		if err != nil {
			return req, err
		}
		req.Operation = OpRemove
		if s.infos.Operation == PointLookup {
			req.Operation = OpLookup
		}
		req.Documents = []document.Value{BuildKeyDocument(key, rev, cfg.IgnoreRevs)}

	default:
		return req, errors.AssertionFailedf("unknown point operation %s", s.infos.Operation)
	}
	return req, nil
}

// identity resolves the key and revision: the constant key first, then the
// Key register, then doc.
func (s *SingleRowExecutor) identity(row Row, doc document.Value) (string, string, error) {
	if s.infos.ConstantKey != "" {
		return s.infos.ConstantKey, "", nil
	}
	source := doc
	if s.infos.Registers.Key != NoRegister {
		source = row.Value(s.infos.Registers.Key)
	}
	return ExtractKeyAndRevision(source, !s.infos.Options.IgnoreRevs)
}
