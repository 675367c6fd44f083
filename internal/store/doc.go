// Package store provides SQLite-backed persistence for roost.
//
// # Overview
//
// Two families of data live here:
//
//   - Accounts: the logged-in sessions. Each row pairs a server domain
//     with an access token and the verified profile data. Exactly one row
//     is active at a time; the active row is the session every other
//     component operates under.
//
//   - Chat message records: the projection of fetched direct statuses
//     that the chat aggregation engine produces. Records are keyed by the
//     server-side status id and upserted, so re-fetching overlapping
//     pages is idempotent.
//
// Chat threads are not stored. They are a query-time aggregation: records
// grouped by counterpart account, with per-group count and latest message,
// ordered by most recent activity. See ListChatThreads.
//
// # Schema
//
// The schema is created automatically on open, and the database runs in
// WAL mode for concurrent readers. Timestamps are stored as RFC 3339 text.
package store
