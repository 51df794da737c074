// Package config loads, normalizes, and validates bidsprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the BIDSPREP_DATA_DIR environment
// fallback. The Config type is the read-only settings collaborator for the
// rest of the system: the association engine reads the marker cardinality
// policy and the instruction toggle from it, and the session reads loader and
// path settings.
package config
