// Package config loads the exporter configuration: server and logging
// settings, check tunables, the project to stream URL mapping and optional
// Slack notifications. Values come from defaults, a YAML file and
// environment variables, in increasing priority.
package config
