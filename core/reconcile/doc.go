// Package reconcile converges the membership index onto the desired membership of a segment.
//
// A segment's desired membership is the result of its defining query. The Engine streams
// that result into a staging set, computes the difference against the current Live Set with
// server-side set algebra, publishes the new Live Set, and fans the difference out to the
// Member Index and the Change Queue through the batch executor.
//
// # Refresh
//
//  1. Stage:    stage_add = validated ids (batched SADD)
//  2. Diff:     stage_new = stage_add - segment
//  3. Diff:     stage_del = segment - stage_add
//  4. Publish:  segment = (segment ∩ stage_add) ∪ stage_new
//  5. Add:      for m in stage_new: SADD member:{m} id; SADD changes m
//  6. Remove:   for m in stage_del: SREM member:{m} id; SADD changes m
//  7. Cleanup:  DEL staging keys; EXPIRE changes
//  8. Return:   SCARD segment
//
// Cost is O(E + U) for the diff and publish steps plus O(Ndiff + Ldiff) for propagation,
// where E is the current Live Set size, U the desired set size and Ndiff/Ldiff the diff sizes.
// Memory in the process stays bounded by the batch size regardless of U.
//
// # Consistency
//
// Nothing here is atomic. Observers can see a half-published segment, and a crash between
// steps 4 and 6 leaves the Member Index behind the Live Set until the next refresh. Every
// write is an idempotent set operation, so rerunning a refresh repairs it.
//
// When staging fails (bad query, lost connection), PolicyPreserve skips steps 2 to 6 and the
// previous membership survives. PolicyTruncate keeps the historical behavior of diffing against
// the partial staging set.
//
// # Teardown
//
// Delete queues every member as changed, retracts the segment from each member's index and
// deletes the Live Set.
package reconcile
