// Package config loads, validates, and normalizes mixdown configuration.
//
// Configuration comes from a TOML file layered with environment overrides
// for secrets. Defaults are applied first, then the file, then the
// environment, then normalization and validation.
package config
