// Package config loads, normalizes, and validates subarchive configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ES_URL, ELASTIC_PASSWORD, HOST_UID and HOST_GID. The Config type centralizes
// every knob the caption pipeline and CLI need, allowing media/data
// directories, the language policy, and search index credentials to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
