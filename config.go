package duex

import "time"

// TLSConfig carries the transport options of §6. Presence of Key+Cert (or
// PFX) switches the gateway to TLS mode.
type TLSConfig struct {
	Key        string
	Cert       string
	PFX        string
	MinVersion string // "TLSv1.2", "TLSv1.3"
	MaxVersion string

	// WatchCert is a supplemented feature (SPEC_FULL.md §4.1): when true
	// and Key/Cert name real files, the gateway watches them with
	// fsnotify and hot-swaps the serving certificate without a restart.
	WatchCert bool
}

// RouterConfig holds route data using the reserved-prefix convention
// documented in §3. NewGateway does not read it and does not pass it to
// the Router: requests are resolved only through the Router given to
// NewGateway.
type RouterConfig struct {
	Routes     map[string]RouteEntry
	Separators string
}

// LogConfig holds logging-sink options. NewGateway does not read it: the
// gateway logs through the Logger given to NewGateway.
type LogConfig struct {
	Mute bool
}

// Config is the bootstrap configuration of §6.
type Config struct {
	Server          TLSConfig
	Router          RouterConfig
	Log             LogConfig
	KeepAliveMillis int64 // surfaced in the Keep-Alive response header, §4.4
}

// DefaultConfig returns the configuration a bare gateway boots with if the
// caller supplies none, the way elliota43/go-php-app-server's
// defaultConfig() does for its AppServerConfig.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveMillis: 10_000,
	}
}

// validate fixes invalid fields to their defaults and reports what it
// fixed through logf, mirroring loadConfig's validation pass.
func (c *Config) validate(logf func(string, ...any)) {
	def := DefaultConfig()
	if c.KeepAliveMillis <= 0 {
		logf("[config] keep_alive_millis=%d is invalid, falling back to %d", c.KeepAliveMillis, def.KeepAliveMillis)
		c.KeepAliveMillis = def.KeepAliveMillis
	}
}

func (c *Config) keepAliveTimeout() time.Duration {
	return time.Duration(c.KeepAliveMillis) * time.Millisecond
}

func (c *Config) isTLS() bool {
	return c.Server.Key != "" && c.Server.Cert != "" || c.Server.PFX != ""
}
