package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/modify"
	"github.com/teranos/modx/rows"
	"github.com/teranos/modx/sym"
)

// PointCmd applies one operation per row without batching
var PointCmd = &cobra.Command{
	Use:   "point <lookup|insert|remove|update|replace|upsert>",
	Short: sym.Lookup + " Apply one operation per row without batching",
	Long: sym.Lookup + ` point - Single-document fast path

Each row is applied in its own transaction and its output is written
immediately. The document comes from --doc, from --key alone (lookup and
remove), or from each record of --input.

A point upsert is an insert that overwrites: --replace selects replace
semantics, otherwise the existing document is updated.

Examples:
  modx point lookup -c users --key alice
  modx point remove -c users --key alice --return-old
  modx point update -c users --key alice --doc '{"age": 31}' --return-new
  modx point insert -c users -i users.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runPoint,
}

var (
	pointSession sessionFlags
	pointIO      ioFlags
	pointKey     string
	pointDoc     string
)

func init() {
	pointSession.register(PointCmd)
	pointIO.register(PointCmd)
	registerOperationFlags(PointCmd)
	PointCmd.Flags().StringVar(&pointKey, "key", "", "Constant document key")
	PointCmd.Flags().StringVar(&pointDoc, "doc", "", "Inline JSON document instead of --input")
}

func runPoint(cmd *cobra.Command, args []string) error {
	op, ok := modify.ParsePointOperation(operationName(args[0]))
	if !ok {
		return errors.WithHint(
			errors.NewInvalidRequestError("unknown point operation %q", args[0]),
			"use one of lookup, insert, remove, update, replace, upsert")
	}

	rt, err := openSession(pointSession)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := rt.cfg.Modify.Defaults.OperationConfig()
	if err := applyOperationFlags(cmd, &opts); err != nil {
		return err
	}

	regs := rows.Registers(pointIO.bindKey)
	if !pointIO.roles {
		regs.Insert = modify.NoRegister
	}
	counters, stats, prom := rt.counters(pointIO.collection, op.String())

	exec, err := modify.NewSingleRowExecutor(modify.SingleInfos{
		Operation:   op,
		Collection:  pointIO.collection,
		Options:     opts,
		Registers:   regs,
		ConstantKey: pointKey,
		Gateway:     rt.gateway,
		Counters:    counters,
		Logger:      logger.Logger,
	})
	if err != nil {
		return err
	}

	src, count, closeInput, err := pointSource(cmd)
	if err != nil {
		return err
	}
	defer closeInput()

	out, err := openOutput(cmd, pointIO.output)
	if err != nil {
		return err
	}
	defer out.Close()
	sink := rows.NewJSONWriter(out, regs)

	runErr := func() error {
		ctx := commandContext(cmd)
		for {
			status, row, err := src.FetchRow(ctx)
			if err != nil {
				return err
			}
			if row != nil {
				if _, err := exec.Execute(ctx, row, sink); err != nil {
					return err
				}
				sink.AdvanceBatch()
			}
			if status == modify.Done {
				return nil
			}
		}
	}()
	if closeErr := sink.Close(); runErr == nil {
		runErr = closeErr
	}
	if prom != nil {
		prom.AddCycles(count())
	}
	if err := rt.flushMetrics(pointSession.metricsFile); err != nil && runErr == nil {
		runErr = err
	}

	logger.ModifyInfow("Point operations finished",
		logger.FieldCollection, pointIO.collection,
		logger.FieldOperation, op.String(),
		logger.FieldRowsIn, count(),
		logger.FieldRowsOut, sink.Rows(),
		logger.FieldExecuted, stats.WritesExecuted(),
		logger.FieldIgnored, stats.WritesIgnored())

	return errors.Wrapf(runErr, "%s %s", op, pointIO.collection)
}

// pointSource picks the row source for point: an inline document, a single
// empty row for a constant key, or the input file.
func pointSource(cmd *cobra.Command) (modify.RowSource, func() int, func(), error) {
	one := func() int { return 1 }
	noop := func() {}
	if pointDoc != "" {
		doc, err := document.Parse([]byte(pointDoc))
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "invalid --doc")
		}
		row := rows.DocumentRow(doc)
		if pointIO.roles {
			if row, err = rows.FromRoles(doc); err != nil {
				return nil, nil, nil, err
			}
		}
		return rows.NewSliceSource(row), one, noop, nil
	}
	if pointKey != "" && !cmd.Flags().Changed("input") {
		return rows.NewSliceSource(rows.NewRow()), one, noop, nil
	}

	format, err := rows.ParseFormat(pointIO.format)
	if err != nil {
		return nil, nil, nil, err
	}
	in, err := openInput(cmd, pointIO.input)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := rows.NewDecoderSource(in, format, pointIO.roles)
	if err != nil {
		in.Close()
		return nil, nil, nil, err
	}
	return src, src.Count, func() { in.Close() }, nil
}
