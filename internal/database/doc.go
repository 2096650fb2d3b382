// Package database provides SQLite-based dataset storage for reviewharvest.
//
// Each (target, severity level) dataset lives in its own file,
// <data dir>/<target id>-<level>.db, holding:
//   - reviews: deduplicated records tagged with the language of the
//     partition that fetched them
//   - translations: translated copies written by the enrichment pass
//   - dataset_meta: the target id and level the file belongs to
//
// SQLite is accessed through modernc.org/sqlite, which needs no CGO.
// Every merge runs in a single transaction and skips records whose
// content key is already present, so merging the same batch twice leaves
// the dataset unchanged.
package database
