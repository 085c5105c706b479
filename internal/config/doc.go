// Package config loads, normalizes, and validates mediacheck configuration data.
//
// It supplies repository defaults rooted in the XDG data directory, expands
// user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as TRANSMISSION_PASSWORD. The Config type
// centralizes every knob the scan workflow needs: the extension allow-list,
// remediation action, archive and remux toggles, external tool timeouts, and
// the transfer-client connection.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lowercase extension sets, and clear validation errors.
package config
