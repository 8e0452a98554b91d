// Package changes exposes the change queue: the set of members whose segment memberships
// changed since a consumer last acknowledged them.
//
// Consumers either pull over HTTP (GET /changes, then DELETE /changes/:member per processed
// member) or let the Relay push one NATS message per member. Delivery is at least once in
// both cases; an entry re-queued by a refresh after it was read is delivered again.
//
// # Message
//
//	{"member_id": "42", "segments": ["3", "7"]}
//
// segments is the member's full current membership, not a delta.
package changes
