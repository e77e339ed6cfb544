// Package api provides the gateway's HTTP front: add, query and stop, plus
// health, collection listing, metrics and an optional MCP endpoint.
package api

import "net/http"

// DefaultBodyLimit is the request body cap used when Config.BodyLimit is zero.
// A 1536-dimension vector is roughly 18 KiB of JSON, so this admits add
// batches of tens of thousands of entries.
const DefaultBodyLimit = 512 << 20

// Config is the API server configuration.
type Config struct {
	// MCPHandler is mounted at /mcp when non-nil.
	MCPHandler http.Handler

	// BodyLimit caps request bodies in bytes. Zero means DefaultBodyLimit.
	BodyLimit int
}
