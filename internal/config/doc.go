// Package config defines the application configuration structure and
// loading logic. Configuration is sourced from environment variables
// (VOLTLAB_ prefix) with an optional YAML file for local development,
// and validated before the application starts.
package config
