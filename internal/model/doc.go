// Package model defines the core data structures shared by reviewharvest.
//
// This package contains the following main types:
//   - Target: An application whose reviews are harvested
//   - SeverityLevel: The review score bucket (1..5) a partition is bound to
//   - Locale: One (language, country) pair from the catalog
//   - Partition: The unit of independent crawl state
//   - Review: A single validated feedback record
//   - PartitionResult and RunSummary: The observable outcome of a run
//
// Models live in their own package so that harvest, database, enrich and
// report can share them without import cycles.
package model
