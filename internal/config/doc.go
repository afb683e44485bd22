// Package config loads, normalizes, and validates the autodub TOML
// configuration. Secrets may also arrive through the environment (optionally
// seeded from a .env file) so API keys stay out of the config file.
package config
