// Package config provides configuration loading and validation for
// DirtyWaters. It defines the attack configuration (target, credentials
// source, indicator sets, rotation schedule, pacing, retry policy), loads it
// from a YAML file with documented defaults, and validates it before any
// network activity starts.
package config
