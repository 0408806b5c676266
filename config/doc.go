// Package config holds the client configuration surface: connection
// timeouts, the reconnect policy, and stream buffering.
//
// All options have defaults (Default); zero values in a loaded file or
// a literal struct are filled in by ApplyDefaults, so callers only set
// what they want to change. Configurations can also be loaded from a
// YAML file with LoadFile.
package config
