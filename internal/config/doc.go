// Package config provides the configuration of a clickgrab run: where pages
// come from, how politely they are fetched, how they are analyzed and where
// results go. Values come from defaults, an optional YAML file and CLI
// flags, in increasing order of precedence.
package config
