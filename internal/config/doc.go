// Package config loads the layered gavel configuration: built-in defaults,
// then a repo-local .gavel.json file, then GAVEL_* environment variables,
// then CLI flag overrides. Later layers win.
package config
