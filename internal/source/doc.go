// Package source talks to the remote review source.
//
// The source serves app metadata and paginated review lists for one
// (language, country, score) combination at a time. HTTPSource speaks the
// JSON gateway protocol; MockSource produces deterministic pages for dry
// runs and tests. Both satisfy Source, and a Factory binds a Source to the
// HTTP client of the current network identity.
//
// The package also reads the target list.
package source
