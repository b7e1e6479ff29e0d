// Package localhtml is the state engine of a self-contained HTML document: a
// single file that is both the editable document and the application that
// edits it.
//
// An Engine gathers the document's form fields, its rich-text pages (package
// pages) and its sidebar widgets (package widgets) into one snapshot, writes
// the snapshot into the file on save and distributes it back on load:
//
//	edit -> component onChange -> notify.Notifier -> change action / autosave
//	SaveDocument: AssembleSnapshot -> snapshot.Encode -> sheet.Inject
//	LoadDocument: sheet.Extract -> snapshot.Decode -> RestoreSnapshot
//	ImportDocument: sheet.ExtractRaw -> snapshot.Decode -> migrate -> RestoreSnapshot
//
// Snapshots saved by an older version of the document are brought forward by
// a migrate.Migrator: a migrate.Chain of Go steps, rules evaluated with expr,
// cel or goja, or a JavaScript migration script.
package localhtml
