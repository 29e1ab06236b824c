// Package config loads and validates application configuration from
// BASECAMP_-prefixed environment variables.
package config
