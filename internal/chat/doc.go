// Package chat reconstructs per-counterpart conversation threads from the
// direct-message timeline.
//
// # Overview
//
// The server has no native 1:1 chat concept: a "direct message" is just a
// status with visibility=direct and explicit @mentions. The Engine turns
// that flat, paginated timeline into chat threads:
//
//  1. A fetch loop pages backward through the timeline (newest first,
//     page size 40), advancing its own max_id cursor from the last
//     element of each page.
//  2. Each status is classified: the current user is removed from the
//     mention list, a single counterpart is resolved (first remaining
//     mention for own messages, the author otherwise), and the result is
//     upserted as a ChatMessageRecord keyed by status id. Statuses that
//     cannot be attributed to exactly one non-self participant are
//     dropped and logged, never stored.
//
// # Result streams
//
// StoreMessages returns a Stream of Loading → Success|Error results. The
// producing fetch loop starts at most once per Stream no matter how many
// observers subscribe, so attaching a second observer can never trigger a
// second network call or double insertion. A page error terminates the
// loop without retry; the next sync starts over from the newest page.
//
// # Live queries
//
// The Broadcaster publishes a change event whenever a record is upserted
// or deleted. Read paths (Threads, Messages) are plain queries; a caller
// that wants reactive behavior subscribes and re-reads on change.
package chat
