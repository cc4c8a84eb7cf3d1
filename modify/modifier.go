package modify

import (
	"context"

	"github.com/teranos/modx/errors"
)

type taggedRow struct {
	tag OperationTag
	row Row
}

// modifier owns one cycle's classification state: the tagged rows in input
// order, one accumulator per target and, after transact, one result per
// target. All of it is cleared together by reset.
type modifier struct {
	kind    Kind
	cfg     OperationConfig
	strat   strategy
	rows    []taggedRow
	accs    [numTargets]Accumulator
	results [numTargets]Result
	// ignored counts rows skipped for pre-validation errors this cycle.
	ignored int
}

func newModifier(kind Kind, cfg OperationConfig, regs Registers, filter WriteFilter) (*modifier, error) {
	strat, err := newStrategy(kind, cfg, regs, filter)
	if err != nil {
		return nil, err
	}
	return &modifier{kind: kind, cfg: cfg, strat: strat}, nil
}

func (m *modifier) reset() {
	for i := range m.rows {
		m.rows[i] = taggedRow{}
	}
	m.rows = m.rows[:0]
	for t := range m.accs {
		m.accs[t].Reset()
		m.results[t] = nil
	}
	m.ignored = 0
}

// accept classifies row and records it. With IgnoreErrors unset a
// pre-validation error is returned and the row is not recorded.
func (m *modifier) accept(row Row) error {
	tag, doc, err := m.strat.classify(row)
	if err != nil {
		if !m.cfg.IgnoreErrors {
			return err
		}
		m.ignored++
		tag = TagSkipRow
	}
	if t, ok := targetOf(tag); ok {
		m.accs[t].Add(doc)
	}
	m.rows = append(m.rows, taggedRow{tag: tag, row: row})
	return nil
}

func (m *modifier) rowCount() int { return len(m.rows) }

// pending reports whether any accumulator holds documents.
func (m *modifier) pending() bool {
	for t := range m.accs {
		if m.accs[t].Count() > 0 {
			return true
		}
	}
	return false
}

func (m *modifier) finalize() {
	for t := range m.accs {
		m.accs[t].Close()
	}
}

// transact submits every non-empty accumulator once. Targets are visited in
// declaration order, so an upsert applies its inserts before its updates.
// With IgnoreErrors unset, a result holding a failed entry stops the cycle
// before the next target is submitted; reconcile then raises that failure.
func (m *modifier) transact(ctx context.Context, gw Gateway, collection string, onSubmit func(Request)) error {
	for t := target(0); t < numTargets; t++ {
		acc := &m.accs[t]
		if acc.Count() == 0 {
			continue
		}
		req := Request{
			Collection: collection,
			Operation:  m.strat.operation(t),
			Documents:  acc.Documents(),
			Options:    m.cfg,
		}
		if onSubmit != nil {
			onSubmit(req)
		}
		res, err := gw.Apply(ctx, req)
		if err != nil {
			return newFatal(collection, err)
		}
		if len(res) != acc.Count() {
			return newFatal(collection, errors.AssertionFailedf(
				"%s result has %d entries for %d documents", t, len(res), acc.Count()))
		}
		m.results[t] = res
		if !m.cfg.IgnoreErrors && res.failed() {
			return nil
		}
	}
	return nil
}
