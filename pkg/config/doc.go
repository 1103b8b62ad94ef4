// Package config loads, validates, and watches Floodgate's YAML
// configuration.
//
// Configuration is resolved in three layers: compiled-in defaults, the
// YAML file unmarshalled over them, and FLOODGATE_* environment
// variable overrides on top. The final result is validated before use.
//
// The Watcher provides optional hot reload of the file, used to pick
// up limit changes without a restart.
package config
