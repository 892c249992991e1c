// Package driving declares what the CLI, HTTP API, MCP server and TUI can ask
// of the core: ingest files, retrieve chunks, answer questions, report index
// status and edit settings.
//
// internal/core/services implements every interface here.
package driving
