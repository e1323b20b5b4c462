// Package entity defines the records held by the knowledge base.
//
// There are four kinds, each identified by a name unique within its own
// collection:
//
//   - Location: a named place
//   - Viewpoint: a pose whose Parent names a Location
//   - Object: a physical object whose DefaultLoc names a Location
//   - Person: a known person
//
// References between kinds are soft. They are plain names that may point at
// a location that does not exist, and deleting a location never touches the
// records that name it.
//
// State (and its alias Batch) is the flat form used on the wire. Collections
// is the name-keyed form used by the store and by snapshot documents.
package entity
