// Package batch groups set writes into bounded, non-transactional pipelines.
//
// Batching exists purely to amortize round trips against the key-value store: a refresh may
// stage millions of members, and one command per round trip would dominate its runtime.
// Batches provide no atomicity. A failure mid-stream leaves every earlier batch applied, so
// every WriteOp must be idempotent.
package batch
