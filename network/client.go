package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("timed out")
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Link is what a session needs from a server connection. Inbound traffic is
// buffered by the link and drained from the session's own goroutine.
type Link interface {
	RoundTripper
	Connect(address string, join messages.JoinRequest)
	SendInput(frame []byte) error
	DrainWorldFrames() [][]byte
	DrainProfiles() []messages.PlayerProfile
	State() ClientState
	LastError() error
	LocalID() string
	TickRate() int
	Disconnect()
}

const (
	worldBufferSize   = 64
	profileBufferSize = 16
	syncBufferSize    = 8
)

// inbox buffers inbound traffic for both transports.
type inbox struct {
	worldCh   chan []byte
	profileCh chan messages.PlayerProfile
	syncCh    chan messages.TimeSyncResponse
}

func newInbox() inbox {
	return inbox{
		worldCh:   make(chan []byte, worldBufferSize),
		profileCh: make(chan messages.PlayerProfile, profileBufferSize),
		syncCh:    make(chan messages.TimeSyncResponse, syncBufferSize),
	}
}

// pushWorld queues a world frame. When the session falls behind the oldest
// frame makes room.
func (in *inbox) pushWorld(data []byte) {
	for {
		select {
		case in.worldCh <- data:
			return
		default:
		}
		select {
		case <-in.worldCh:
		default:
		}
	}
}

func (in *inbox) pushProfile(p messages.PlayerProfile) {
	select {
	case in.profileCh <- p:
	default:
	}
}

func (in *inbox) pushSync(r messages.TimeSyncResponse) {
	select {
	case in.syncCh <- r:
	default:
	}
}

// awaitSync waits for the reply to the request stamped clientSendMs. Replies
// to earlier requests are discarded.
func (in *inbox) awaitSync(ctx context.Context, clientSendMs float64, timeout time.Duration) (float64, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case resp := <-in.syncCh:
			if resp.ClientSendMs == clientSendMs {
				return resp.ServerMs, nil
			}
		case <-timer.C:
			return 0, fmt.Errorf("time sync: %w", ErrTimeout)
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// clear discards everything buffered from the previous connection.
func (in *inbox) clear() {
	drainChan(in.worldCh)
	drainChan(in.profileCh)
	drainChan(in.syncCh)
}

func (in *inbox) DrainWorldFrames() [][]byte {
	return drainChan(in.worldCh)
}

func (in *inbox) DrainProfiles() []messages.PlayerProfile {
	return drainChan(in.profileCh)
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	inbox

	mu sync.RWMutex

	state          ClientState
	lastError      error
	localID        string
	reconnectToken string
	serverName     string
	tickRate       int
	conn           *websocket.Conn

	logger      *zap.Logger
	syncTimeout time.Duration
}

func NewClient(logger *zap.Logger, syncTimeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		inbox:       newInbox(),
		state:       StateDisconnected,
		logger:      logger.Named("client"),
		syncTimeout: syncTimeout,
	}
}

// Connect dials the server in a background goroutine and initiates the join handshake.
func (c *Client) Connect(address string, join messages.JoinRequest) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.forgetSession()
	if join.ReconnectToken == "" {
		join.ReconnectToken = c.reconnectToken
	}
	c.mu.Unlock()
	c.clear()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.logger.Info("connected to server", zap.String("address", address))
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.send(join); err != nil {
			c.setError(fmt.Errorf("send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		c.logger.Info("join accepted",
			zap.String("local_id", msg.LocalID),
			zap.String("server", msg.ServerName),
			zap.Int("tick_rate", msg.TickRate))
		c.mu.Lock()
		c.localID = msg.LocalID
		c.reconnectToken = msg.ReconnectToken
		c.serverName = msg.ServerName
		c.tickRate = msg.TickRate
		c.state = StateJoinedGame
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		c.logger.Warn("join rejected", zap.String("reason", msg.Reason))
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, msg messages.WorldFrame) {
		c.pushWorld(msg.Data)
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerProfile) {
		c.pushProfile(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.TimeSyncResponse) {
		c.pushSync(msg)
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.logger.Info("disconnected", zap.Error(err))
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.forgetSession()
		c.mu.Unlock()
		c.clear()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.logger.Warn("router error", zap.Error(err))
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.forgetSession()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
	c.clear()
}

// forgetSession drops what the server told us about the last join. Callers
// hold mu.
func (c *Client) forgetSession() {
	c.localID = ""
	c.serverName = ""
	c.tickRate = 0
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) LocalID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localID
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// SendInput sends one encoded input frame.
func (c *Client) SendInput(frame []byte) error {
	return c.send(messages.InputFrame{Data: frame})
}

// RoundTrip implements RoundTripper over the router.
func (c *Client) RoundTrip(ctx context.Context, clientSendMs float64) (float64, error) {
	if err := c.send(messages.TimeSyncRequest{ClientSendMs: clientSendMs}); err != nil {
		return 0, err
	}
	return c.awaitSync(ctx, clientSendMs, c.syncTimeout)
}

func (c *Client) send(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.logger.Error("client error", zap.Error(err))
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.forgetSession()
	c.mu.Unlock()
	c.clear()
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
