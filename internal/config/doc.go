// Package config defines relsync settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings come from an optional YAML file, then RELSYNC_* variables (a
// dotenv file first, the process environment over it); command-line flags
// are applied on top by the caller.
package config
