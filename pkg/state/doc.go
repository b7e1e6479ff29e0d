// Package state persists document snapshots as a history of revisions.
//
// A Store keeps every saved revision of a document, keyed by Ref. Each
// revision gets a fresh SnapshotID and an ETag derived from its content, so
// callers can detect concurrent writers (ErrETagMismatch) and skip saving an
// unchanged document.
//
// Data flow:
//
//	Engine change notification -> Autosaver.Save -> Store.Save
//
// MemoryStore serves tests and short-lived processes; SQLiteStore keeps the
// history in a SQLite database through modernc.org/sqlite.
package state
