// Package harvest crawls partitions of the review source into datasets.
//
// A partition is one (target, severity level, language, country) slice of
// the source with its own pagination. The Controller drives a single
// partition: it fetches pages with a Fetcher, asks the BackoffPolicy what
// to do after each outcome, buffers records and hands them to the Merger
// once the partition is exhausted or the buffer reaches the flush
// threshold. A partition terminates after one merge; it is never resumed.
//
// The Orchestrator walks targets, then severity levels, then the locale
// catalog, holding one network identity per level by default, and runs the
// enrichment pass after each level.
//
// Fetch failures never escape a partition. The only error a Controller
// returns is cancellation of its context.
package harvest
