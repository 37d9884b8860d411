// Package wsutil holds small websocket-adjacent helpers shared by the
// transport layer.
package wsutil

const (
	// DefaultMaxFrameBytes bounds a single inbound websocket message. It must
	// comfortably exceed the largest legitimate payload (terminal output,
	// file contents) while still protecting against a misbehaving peer.
	DefaultMaxFrameBytes = 16 << 20
)

// ReadLimit returns maxFrameBytes if positive, otherwise DefaultMaxFrameBytes.
func ReadLimit(maxFrameBytes int) int64 {
	if maxFrameBytes > 0 {
		return int64(maxFrameBytes)
	}
	return DefaultMaxFrameBytes
}
