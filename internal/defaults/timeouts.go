package defaults

import (
	"time"

	"github.com/computesdk/computesdk-sub001/internal/cmdutil"
)

// ConnectTimeout bounds how long opening the underlying websocket may take.
var ConnectTimeout = envDuration("COMPUTESDK_CONNECT_TIMEOUT", 10*time.Second)

// RequestTimeout is the default HTTP request timeout applied by httpapi.Client.
var RequestTimeout = envDuration("COMPUTESDK_REQUEST_TIMEOUT", 30*time.Second)

// PingInterval is the default application-level liveness ping cadence; 0 disables it.
var PingInterval = envDuration("COMPUTESDK_PING_INTERVAL", 20*time.Second)

// ReconnectDelay is the default wait between reconnect attempts.
var ReconnectDelay = envDuration("COMPUTESDK_RECONNECT_DELAY", 1*time.Second)

// ReconnectMaxAttempts is the default ceiling on reconnect attempts; 0 means unlimited.
var ReconnectMaxAttempts = envInt("COMPUTESDK_RECONNECT_MAX_ATTEMPTS", 0)

// envDuration reads an env override, falling back to fallback on an unset
// or malformed value rather than failing package init.
func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := cmdutil.EnvDuration(key, fallback)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	n, err := cmdutil.EnvInt(key, fallback)
	if err != nil {
		return fallback
	}
	return n
}
