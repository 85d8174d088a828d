// Package config loads the queue service settings from defaults, an optional
// config file, a .env file and TASKQ_-prefixed environment variables, then
// validates them before any component is built.
package config
