// Package modify implements the write path of a query pipeline: rows pulled
// from an upstream source are classified per modification kind, their
// documents accumulated into one batch, applied through a Gateway in a
// single call, and the per-document results reconciled back onto the rows
// in their original order.
//
// The batched pipeline is Executor. SingleRowExecutor is the point-operation
// fast path for exactly one document without accumulation.
//
// Lifecycle of one Executor cycle:
//
//	idle -> collecting -> transacting -> reconciling -> idle | done
//
// A source may suspend while collecting; the cycle's rows, tags and
// accumulators are kept and the next ProduceRows call resumes it.
package modify
