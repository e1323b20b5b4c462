// Package persistence reads and writes knowledge-base snapshots.
//
// A snapshot document is YAML with four top-level mappings (locations,
// viewpoints, objects, persons), each from record name to record:
//
//	locations:
//	  kitchen:
//	    name: kitchen
//	viewpoints:
//	  v1:
//	    name: v1
//	    parent: kitchen
//	objects: {}
//	persons: {}
//
// Documents are checked against an embedded JSON Schema before they are
// decoded, and anything that does not match is reported as ErrMalformed.
//
// The automatic snapshot taken after every mutation goes to a Backend: a
// YAML file at DefaultSnapshotPath unless configured otherwise, or a
// kbase_state table in sqlite or postgres. Explicit dumps go through a Dumper
// to a filesystem path or an s3:// object and never touch the backend.
package persistence
