// Package config provides configuration loading, merging, and validation
// facilities for the sync client.
//
// Configuration is assembled from multiple sources in the following priority
// order (earlier sources win for non-zero fields):
//  1. Command-line flags
//  2. Environment variables (SYNC15_ prefix)
//  3. JSON or YAML config file
//  4. Built-in defaults
//
// The main entry points are [BindFlags], [GetStructuredConfig] and
// [GetClientConfig].
package config
