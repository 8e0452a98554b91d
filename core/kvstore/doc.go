// Package kvstore provides the set-oriented key-value store used for segment membership.
//
// It wraps the go-redis client behind a narrow Client interface that only exposes the set
// operations the synchronization engine relies on. Keeping the surface small makes it easy
// to mock store interactions in unit tests (see core/kvstore/mocks).
//
// # Operations
//
//   - SAdd / SRem / SIsMember / SCard: single-set operations.
//   - SDiffStore / SInterStore / SUnionStore: server-side set algebra into a destination key.
//   - Del / Expire: key lifecycle.
//   - Scan: lazy SSCAN enumeration of a set's members as an iter.Seq2.
//   - Pipeline: non-transactional batches of SAdd/SRem.
//
// None of these operations are transactional across keys. Callers that need several keys to
// agree must tolerate partial application.
//
// # Usage
//
//	client, err := kvstore.NewClient(cfg.Redis)
//	ok, err := client.SIsMember(ctx, "member:42", "7")
package kvstore
