package network

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NewLink returns the client for transport: "ws" (default), "tcp" or "kcp".
func NewLink(transport string, logger *zap.Logger, syncTimeout time.Duration) (Link, error) {
	switch strings.ToLower(transport) {
	case "", "ws", "websocket":
		return NewClient(logger, syncTimeout), nil
	case "tcp", "kcp":
		return NewStreamClient(strings.ToLower(transport), logger, syncTimeout), nil
	}
	return nil, fmt.Errorf("unknown transport %q", transport)
}
