// Package index maintains the two derived membership indices and the change queue.
//
// # Key Families
//
//   - segment:{id}  Live Set, the members currently in a segment.
//   - member:{id}   Member Index, the segments a member currently belongs to.
//   - changes       Change Queue, members whose memberships changed and are pending consumption.
//
// A member m is in segment:{s} iff s is in member:{m}. The store offers no cross-key
// transactions, so this holds eventually: a crash between the two writes can break it until
// the next refresh of the segment repairs it.
//
// # Error Semantics
//
// Point operations used on hot request paths (HasMember, AddMembership, RemoveMembership)
// never return errors. They log and return false, which callers must read as
// "may not have applied". Read accessors return wrapped errors.
package index
