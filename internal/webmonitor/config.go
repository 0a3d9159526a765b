package webmonitor

import "time"

// Config defines the runtime configuration for the monitor server.
type Config struct {
	Addr           string
	AssetsDir      string // Optional extra assets directory; empty disables /assets/
	PaintFPS       int    // Overlay compositing rate while clients are connected
	StatusInterval time.Duration
	SSEKeepalive   time.Duration // Comment keepalive period on the status stream
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8090",
		AssetsDir:      "",
		PaintFPS:       30,
		StatusInterval: 2 * time.Second,
		SSEKeepalive:   30 * time.Second,
	}
}
