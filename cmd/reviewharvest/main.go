// Package main provides the entry point for the reviewharvest CLI.
//
// reviewharvest collects user reviews of store applications, partitioned by
// severity level and locale, into one deduplicated SQLite dataset per
// application and level. Long crawls can rotate their network identity
// between levels, and every dataset can be translated after it is built.
//
// Usage:
//
//	reviewharvest harvest [app-id...]
//	reviewharvest translate
//	reviewharvest stats
//
// See --help for all available options.
package main

// main is the entry point for reviewharvest.
func main() {
	Execute()
}
