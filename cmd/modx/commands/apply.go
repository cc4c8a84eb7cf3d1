package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/logger"
	"github.com/teranos/modx/modify"
	"github.com/teranos/modx/rows"
	"github.com/teranos/modx/sym"
)

// ApplyCmd runs the batched modification pipeline
var ApplyCmd = &cobra.Command{
	Use:   "apply <insert|remove|update|replace|upsert>",
	Short: sym.Pipeline + " Run the batched modification pipeline over a row file",
	Long: sym.Pipeline + ` apply - Run the batched modification pipeline

Reads rows from a JSON-lines or YAML file, applies them to a collection in
batches, and writes one output row per input row in input order.

Without --roles each record is the document itself. With --roles each
record is an object of roles: doc, key, insert, update.

Upsert rows carry the matched document (or null) in doc, and the insert
and update expressions in insert and update.

Examples:
  modx apply insert -c users -i users.jsonl --return-new
  modx apply remove -c users -i keys.jsonl --ignore-not-found
  modx apply update -c users -i patches.yaml --format yaml --keep-null
  modx apply upsert -c counters -i rows.jsonl --roles --return-new`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var (
	applySession   sessionFlags
	applyIO        ioFlags
	applyBatchSize int
)

type ioFlags struct {
	collection string
	input      string
	output     string
	format     string
	roles      bool
	bindKey    bool
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.collection, "collection", "c", "", "Collection to modify (required)")
	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "Row file, - for stdin")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVar(&f.format, "format", "jsonl", "Row format: jsonl, yaml")
	cmd.Flags().BoolVar(&f.roles, "roles", false, "Records are objects of roles (doc, key, insert, update)")
	cmd.Flags().BoolVar(&f.bindKey, "bind-key", false, "Take document keys from the key role")
	cmd.MarkFlagRequired("collection")
}

func init() {
	applySession.register(ApplyCmd)
	applyIO.register(ApplyCmd)
	registerOperationFlags(ApplyCmd)
	ApplyCmd.Flags().IntVar(&applyBatchSize, "batch-size", 0, "Rows per transaction (default: modify.batch_size from config)")
}

func runApply(cmd *cobra.Command, args []string) error {
	name := operationName(args[0])
	kind, ok := modify.ParseKind(name)
	if !ok {
		return errors.WithHint(
			errors.NewInvalidRequestError("unknown operation %q", args[0]),
			"valid operations:\n"+describeKinds())
	}
	if kind == modify.KindUpsert && !applyIO.roles {
		return errors.WithHint(
			errors.NewInvalidRequestError("upsert needs role records"),
			"pass --roles and give each record doc, insert and update")
	}

	format, err := rows.ParseFormat(applyIO.format)
	if err != nil {
		return err
	}

	rt, err := openSession(applySession)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := rt.cfg.Modify.Defaults.OperationConfig()
	if err := applyOperationFlags(cmd, &opts); err != nil {
		return err
	}
	opts.ConsultWriteFilter = rt.filter != nil

	batchSize := applyBatchSize
	if batchSize == 0 {
		batchSize = rt.cfg.GetBatchSize()
	}

	in, err := openInput(cmd, applyIO.input)
	if err != nil {
		return err
	}
	defer in.Close()
	src, err := rows.NewDecoderSource(in, format, applyIO.roles)
	if err != nil {
		return err
	}

	out, err := openOutput(cmd, applyIO.output)
	if err != nil {
		return err
	}
	defer out.Close()

	regs := rows.Registers(applyIO.bindKey)
	sink := rows.NewJSONWriter(out, regs)
	counters, stats, prom := rt.counters(applyIO.collection, kind.String())

	exec, err := modify.NewExecutor(modify.Infos{
		Kind:                kind,
		Collection:          applyIO.collection,
		Options:             opts,
		Registers:           regs,
		BatchSize:           batchSize,
		AllowUpsertBatching: !rt.cfg.Modify.UpsertReadOwnWrites,
		Gateway:             rt.gateway,
		WriteFilter:         rt.writeFilter(),
		Counters:            counters,
		Logger:              logger.Logger,
	})
	if err != nil {
		return err
	}

	runErr := drive(commandContext(cmd), exec, src, sink)
	if closeErr := sink.Close(); runErr == nil {
		runErr = closeErr
	}
	if prom != nil {
		prom.AddCycles(exec.Cycles())
	}
	if err := rt.flushMetrics(applySession.metricsFile); err != nil && runErr == nil {
		runErr = err
	}

	logger.ModifyInfow("Pipeline finished",
		logger.FieldCollection, applyIO.collection,
		logger.FieldKind, kind.String(),
		logger.FieldRowsIn, src.Count(),
		logger.FieldRowsOut, sink.Rows(),
		logger.FieldExecuted, stats.WritesExecuted(),
		logger.FieldIgnored, stats.WritesIgnored(),
		"cycles", exec.Cycles())

	if runErr != nil {
		return errors.Wrapf(runErr, "%s %s", kind, applyIO.collection)
	}
	if applyIO.output != "" && applyIO.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d rows in, %d rows out, %d written, %d ignored\n",
			sym.For(kind.String()), applyIO.collection, src.Count(), sink.Rows(),
			stats.WritesExecuted(), stats.WritesIgnored())
	}
	return nil
}

// drive calls ProduceRows until the executor reports done. A source that
// suspends is polled again immediately; file sources never suspend.
func drive(ctx context.Context, exec *modify.Executor, src modify.RowSource, sink modify.OutputSink) error {
	for {
		state, err := exec.ProduceRows(ctx, src, sink, exec.BatchSize())
		if err != nil {
			return err
		}
		if state == modify.ExecDone {
			return nil
		}
		if state == modify.ExecWaiting {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// describeKinds lists the operations accepted by apply, one per line.
func describeKinds() string {
	var lines []string
	for k := modify.KindInsert; k <= modify.KindUpsert; k++ {
		name := k.String()
		lines = append(lines, "  "+sym.For(name)+" "+sym.CommandDescriptions[name])
	}
	return strings.Join(lines, "\n")
}
