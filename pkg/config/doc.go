// Package config loads and validates service configuration from
// environment variables.
package config
