// Package enrich runs the post-harvest translation pass.
//
// After a severity level completes, every review of its dataset that has no
// translation into the configured language yet is translated and stored
// next to the original. A failed translation keeps the original text and is
// marked as failed, so a dataset is never left half-processed.
package enrich
