// Package config provides configuration structures and utilities for
// reviewharvest. It defines the harvest thresholds, the remote source,
// network identity rotation, translation settings and the
// language/region catalog.
//
// Values are resolved in this order, later sources winning:
//  1. NewConfig defaults
//  2. The YAML configuration file (see FindConfigFile)
//  3. REVIEWHARVEST_* environment variables (see ApplyEnv)
//  4. Command line flags
package config
