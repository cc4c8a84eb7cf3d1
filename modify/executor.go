package modify

import (
	"context"
	"fmt"
	"time"

	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds a cycle when Infos.BatchSize is zero.
const DefaultBatchSize = 1000

// Infos configures an Executor.
type Infos struct {
	Kind       Kind
	Collection string
	Options    OperationConfig
	Registers  Registers

	// BatchSize bounds the rows collected per cycle. Upsert pipelines run
	// one row per cycle so every row sees the writes of the previous one,
	// unless AllowUpsertBatching is set.
	BatchSize           int
	AllowUpsertBatching bool

	Gateway     Gateway
	WriteFilter WriteFilter
	Counters    Counters
	Logger      *zap.SugaredLogger
}

func (i Infos) validate() error {
	if i.Gateway == nil {
		return errors.NewInvalidRequestError("gateway is required")
	}
	if i.Collection == "" {
		return errors.NewInvalidRequestError("collection name is required")
	}
	if i.BatchSize < 0 {
		return errors.NewInvalidRequestError("batch size must not be negative, got %d", i.BatchSize)
	}
	if i.Registers.Document == NoRegister {
		return errors.NewInvalidRequestError("%s requires a document register", i.Kind)
	}
	if i.Kind == KindUpsert && (i.Registers.Insert == NoRegister || i.Registers.Update == NoRegister) {
		return errors.NewInvalidRequestError("upsert requires insert and update registers")
	}
	if i.Options.ReturnNew && i.Registers.OutputNew == NoRegister {
		return errors.NewInvalidRequestError("returnNew requires an output register")
	}
	if i.Options.ReturnOld && i.Registers.OutputOld == NoRegister {
		return errors.NewInvalidRequestError("returnOld requires an output register")
	}
	if i.Options.ConsultWriteFilter && i.WriteFilter == nil {
		return errors.NewInvalidRequestError("consultWriteFilter is set but no write filter is configured")
	}
	return nil
}

// ExecState is returned by ProduceRows.
type ExecState uint8

const (
	// ExecHasMore: a cycle completed and upstream may have more rows.
	ExecHasMore ExecState = iota
	// ExecDone: upstream is exhausted and all output has been emitted.
	ExecDone
	// ExecWaiting: upstream suspended mid-cycle; call again with the same
	// source and sink to resume.
	ExecWaiting
)

func (s ExecState) String() string {
	switch s {
	case ExecHasMore:
		return "has-more"
	case ExecDone:
		return "done"
	case ExecWaiting:
		return "waiting"
	}
	return fmt.Sprintf("exec-state(%d)", uint8(s))
}

type pipelineState uint8

const (
	stateIdle pipelineState = iota
	stateCollecting
	stateTransacting
	stateReconciling
	stateDone
)

func (s pipelineState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCollecting:
		return "collecting"
	case stateTransacting:
		return "transacting"
	case stateReconciling:
		return "reconciling"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Executor is the batched modification pipeline. It is driven by repeated
// ProduceRows calls from a single goroutine.
type Executor struct {
	infos    Infos
	mod      *modifier
	counters Counters
	log      *zap.SugaredLogger

	state        pipelineState
	cycleLimit   int
	upstreamDone bool
	cycles       int
	// err is sticky: once a cycle aborts, every later call returns it.
	err error
}

// NewExecutor validates infos and returns an idle pipeline.
func NewExecutor(infos Infos) (*Executor, error) {
	if err := infos.validate(); err != nil {
		return nil, err
	}
	mod, err := newModifier(infos.Kind, infos.Options, infos.Registers, infos.WriteFilter)
	if err != nil {
		return nil, err
	}
	counters := infos.Counters
	if counters == nil {
		counters = noCounters{}
	}
	return &Executor{
		infos:    infos,
		mod:      mod,
		counters: counters,
		log: logger.AddOperationSymbol(logger.OrGlobal(infos.Logger), infos.Kind.String()).
			With(logger.FieldCollection, infos.Collection, logger.FieldKind, infos.Kind.String()),
	}, nil
}

// BatchSize returns the effective per-cycle row bound.
func (e *Executor) BatchSize() int {
	if e.infos.Kind == KindUpsert && !e.infos.AllowUpsertBatching {
		return 1
	}
	if e.infos.BatchSize == 0 {
		return DefaultBatchSize
	}
	return e.infos.BatchSize
}

// ProduceRows runs at most one cycle: collect up to min(limit, BatchSize)
// rows, apply them, and emit their output to sink in input order.
//
// ExecWaiting means the source suspended; the partially collected cycle is
// kept and the next call resumes it. Once the gateway has been called the
// cycle runs to completion even if ctx is cancelled.
func (e *Executor) ProduceRows(ctx context.Context, src RowSource, sink OutputSink, limit int) (ExecState, error) {
	if e.err != nil {
		return ExecDone, e.err
	}
	if e.state == stateDone {
		return ExecDone, nil
	}

	if e.state == stateIdle {
		if limit <= 0 {
			return ExecHasMore, nil
		}
		e.mod.reset()
		e.cycleLimit = min(limit, e.BatchSize())
		e.state = stateCollecting
	}

	if e.state == stateCollecting {
		suspended, err := e.collect(ctx, src)
		if err != nil {
			return ExecDone, e.fail(err)
		}
		if suspended {
			return ExecWaiting, nil
		}
		e.mod.finalize()
		e.state = stateTransacting
	}

	start := time.Now()
	if e.mod.pending() {
		if err := e.mod.transact(context.WithoutCancel(ctx), e.infos.Gateway, e.infos.Collection, e.logSubmit); err != nil {
			return ExecDone, e.fail(err)
		}
	}

	e.state = stateReconciling
	stats, err := e.mod.reconcile(sink)
	if err != nil {
		return ExecDone, e.fail(err)
	}
	ignored := stats.ignored + e.mod.ignored
	e.counters.AddWritesExecuted(stats.executed)
	e.counters.AddWritesIgnored(ignored)
	if e.mod.rowCount() > 0 {
		sink.AdvanceBatch()
	}
	e.cycles++

	e.log.Debugw("Cycle complete",
		logger.FieldRowsIn, e.mod.rowCount(),
		logger.FieldRowsOut, stats.emitted,
		logger.FieldExecuted, stats.executed,
		logger.FieldIgnored, ignored,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	if e.upstreamDone {
		e.state = stateDone
		return ExecDone, nil
	}
	e.state = stateIdle
	return ExecHasMore, nil
}

// collect pulls rows until the cycle bound is reached or upstream is
// exhausted. It reports true when upstream suspended.
func (e *Executor) collect(ctx context.Context, src RowSource) (bool, error) {
	for e.mod.rowCount() < e.cycleLimit {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		status, row, err := src.FetchRow(ctx)
		if err != nil {
			return false, errors.Wrap(err, "fetch row")
		}
		switch status {
		case Suspended:
			e.log.Debugw("Upstream suspended", logger.FieldRowsIn, e.mod.rowCount())
			return true, nil
		case Done:
			e.upstreamDone = true
			if row != nil {
				if err := e.mod.accept(row); err != nil {
					return false, err
				}
			}
			return false, nil
		case HasMore:
			if row == nil {
				return false, errors.AssertionFailedf("upstream reported has-more without a row")
			}
			if err := e.mod.accept(row); err != nil {
				return false, err
			}
		default:
			return false, errors.AssertionFailedf("unknown fetch status %s", status)
		}
	}
	return false, nil
}

func (e *Executor) logSubmit(req Request) {
	e.log.Debugw("Submitting batch",
		logger.FieldOperation, req.Operation.String(),
		logger.FieldDocuments, len(req.Documents))
}

func (e *Executor) fail(err error) error {
	var docErr *Error
	if errors.As(err, &docErr) {
		e.log.Warnw("Cycle aborted", logger.FieldState, e.state.String(),
			logger.FieldErrorCode, int(docErr.Code), logger.FieldError, err)
	} else {
		e.log.Warnw("Cycle aborted", logger.FieldState, e.state.String(), logger.FieldError, err)
	}
	e.err = err
	e.state = stateDone
	return err
}

// Cycles returns the number of completed cycles.
func (e *Executor) Cycles() int { return e.cycles }
