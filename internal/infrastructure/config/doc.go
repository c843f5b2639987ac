// Package config loads and validates StackPark Core configuration.
//
// Configuration is read from a YAML file with hardcoded defaults and
// STACKPARK_* environment variable overrides, in that precedence order.
// The facility geometry (levels, positions, level height), lift motion
// parameters, transfer timeouts, and infrastructure connections are all
// defined here; components take the sub-structs they need rather than
// reaching for globals.
package config
