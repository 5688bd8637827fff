package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/vmihailenco/msgpack/v5"
	kcp "github.com/xtaci/kcp-go/v5"
	"go.uber.org/zap"
)

// MaxPacketSize bounds one stream frame body.
const MaxPacketSize = 64 * 1024

// frameKind is the first byte of every stream frame body. World and input
// frames carry raw codec bytes; every other kind carries a msgpack payload.
type frameKind uint8

const (
	kindJoinRequest frameKind = iota + 1
	kindJoinAccepted
	kindJoinRejected
	kindWorld
	kindInput
	kindTimeSyncRequest
	kindTimeSyncResponse
	kindProfile
)

const sendQueueSize = 256

// StreamClient talks to the server over a length-prefixed byte stream, either
// TCP or KCP in stream mode.
type StreamClient struct {
	inbox

	proto       string
	logger      *zap.Logger
	syncTimeout time.Duration

	mu        sync.RWMutex
	active    *streamConn
	gen       uint64 // bumped by Connect and Disconnect; stale dials are discarded
	state     ClientState
	lastError error
	localID   string
	tickRate  int
	token     string
}

// streamConn is one live connection and the two loops serving it.
type streamConn struct {
	conn   net.Conn
	sendCh chan []byte
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

// NewStreamClient creates a client for proto "tcp" or "kcp".
func NewStreamClient(proto string, logger *zap.Logger, syncTimeout time.Duration) *StreamClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamClient{
		inbox:       newInbox(),
		proto:       proto,
		logger:      logger.Named("stream"),
		syncTimeout: syncTimeout,
		state:       StateDisconnected,
	}
}

func dialStream(proto, address string) (net.Conn, error) {
	switch proto {
	case "", "tcp":
		return net.DialTimeout("tcp", address, 5*time.Second)
	case "kcp":
		conn, err := kcp.DialWithOptions(address, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetNoDelay(1, 10, 2, 1)
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", proto)
	}
}

// Connect dials in the background and sends join once connected. Any previous
// connection is torn down first.
func (s *StreamClient) Connect(address string, join messages.JoinRequest) {
	s.teardown()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateConnecting
	s.lastError = nil
	if join.ReconnectToken == "" {
		join.ReconnectToken = s.token
	}
	s.mu.Unlock()

	go func() {
		conn, err := dialStream(s.proto, address)
		if err != nil {
			s.failDial(gen, fmt.Errorf("connection failed: %w", err))
			return
		}
		sc, ok := s.attach(gen, conn)
		if !ok {
			_ = conn.Close()
			return
		}
		s.logger.Info("connected to server", zap.String("address", conn.RemoteAddr().String()), zap.String("proto", s.proto))
		if err := s.sendControl(kindJoinRequest, join); err != nil {
			s.release(sc, fmt.Errorf("send join request: %w", err))
		}
	}()
}

func (s *StreamClient) failDial(gen uint64, err error) {
	s.mu.Lock()
	current := s.gen == gen
	s.mu.Unlock()
	if current {
		s.setError(err)
	}
}

// attach starts the read and write loops on conn, unless Connect or
// Disconnect ran again while it was dialing.
func (s *StreamClient) attach(gen uint64, conn net.Conn) (*streamConn, bool) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := &streamConn{conn: conn, sendCh: make(chan []byte, sendQueueSize), cancel: cancel}

	s.mu.Lock()
	if s.gen != gen || s.active != nil {
		s.mu.Unlock()
		cancel()
		return nil, false
	}
	s.active = sc
	s.state = StateConnected
	s.mu.Unlock()

	sc.loops.Add(2)
	go s.receiveLoop(ctx, sc)
	go s.sendLoop(ctx, sc)
	return sc, true
}

func (s *StreamClient) receiveLoop(ctx context.Context, sc *streamConn) {
	defer sc.loops.Done()
	for {
		body, err := readFrame(sc.conn)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.release(sc, fmt.Errorf("read: %w", err))
			} else {
				s.release(sc, nil)
			}
			return
		}
		if err := s.handleFrame(sc, body); err != nil {
			s.logger.Warn("dropped frame", zap.Error(err))
		}
	}
}

func (s *StreamClient) sendLoop(ctx context.Context, sc *streamConn) {
	defer sc.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-sc.sendCh:
			if err := writeFrame(sc.conn, body); err != nil {
				if ctx.Err() == nil {
					s.release(sc, fmt.Errorf("write: %w", err))
				}
				return
			}
		}
	}
}

// release ends sc after the server went away or an I/O error. It is a no-op
// once sc is no longer the active connection.
func (s *StreamClient) release(sc *streamConn, err error) {
	s.mu.Lock()
	if s.active != sc {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.forgetSession()
	if err != nil {
		s.state = StateError
		s.lastError = err
	} else if s.state != StateError {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("stream error", zap.Error(err))
	} else {
		s.logger.Info("disconnected")
	}
	sc.cancel()
	_ = sc.conn.Close()
	s.clear()
}

// teardown closes the active connection, if any, and waits for its loops.
func (s *StreamClient) teardown() {
	s.mu.Lock()
	sc := s.active
	s.active = nil
	s.forgetSession()
	s.mu.Unlock()

	if sc != nil {
		sc.cancel()
		_ = sc.conn.Close()
		sc.loops.Wait()
	}
	s.clear()
}

// forgetSession drops what the server told us about the last join. Callers
// hold mu.
func (s *StreamClient) forgetSession() {
	s.localID = ""
	s.tickRate = 0
}

func (s *StreamClient) handleFrame(sc *streamConn, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	kind, payload := frameKind(body[0]), body[1:]
	switch kind {
	case kindWorld:
		s.pushWorld(payload)
	case kindJoinAccepted:
		var msg messages.JoinAccepted
		if err := msgpack.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("join accepted: %w", err)
		}
		s.logger.Info("join accepted",
			zap.String("local_id", msg.LocalID),
			zap.String("server", msg.ServerName),
			zap.Int("tick_rate", msg.TickRate))
		s.mu.Lock()
		if s.active == sc {
			s.localID = msg.LocalID
			s.tickRate = msg.TickRate
			s.token = msg.ReconnectToken
			s.state = StateJoinedGame
		}
		s.mu.Unlock()
	case kindJoinRejected:
		var msg messages.JoinRejected
		if err := msgpack.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("join rejected: %w", err)
		}
		s.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	case kindTimeSyncResponse:
		var msg messages.TimeSyncResponse
		if err := msgpack.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("time sync: %w", err)
		}
		s.pushSync(msg)
	case kindProfile:
		var msg messages.PlayerProfile
		if err := msgpack.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		s.pushProfile(msg)
	default:
		return fmt.Errorf("unknown frame kind %d", kind)
	}
	return nil
}

// SendInput queues one encoded input frame.
func (s *StreamClient) SendInput(frame []byte) error {
	body := make([]byte, 0, len(frame)+1)
	body = append(body, byte(kindInput))
	body = append(body, frame...)
	return s.enqueue(body)
}

// RoundTrip implements RoundTripper over the stream.
func (s *StreamClient) RoundTrip(ctx context.Context, clientSendMs float64) (float64, error) {
	if err := s.sendControl(kindTimeSyncRequest, messages.TimeSyncRequest{ClientSendMs: clientSendMs}); err != nil {
		return 0, err
	}
	return s.awaitSync(ctx, clientSendMs, s.syncTimeout)
}

func (s *StreamClient) sendControl(kind frameKind, msg any) error {
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.enqueue(append([]byte{byte(kind)}, payload...))
}

func (s *StreamClient) enqueue(body []byte) error {
	s.mu.RLock()
	sc := s.active
	s.mu.RUnlock()
	if sc == nil {
		return ErrNotConnected
	}
	select {
	case sc.sendCh <- body:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (s *StreamClient) Disconnect() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	s.teardown()

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
}

func (s *StreamClient) State() ClientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *StreamClient) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *StreamClient) LocalID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localID
}

func (s *StreamClient) TickRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickRate
}

func (s *StreamClient) setError(err error) {
	s.logger.Error("stream error", zap.Error(err))
	s.mu.Lock()
	s.state = StateError
	s.lastError = err
	s.mu.Unlock()
}

// readFrame reads one big-endian u32 length prefix and its body.
func readFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("frame too large (%d bytes)", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func writeFrame(w io.Writer, body []byte) error {
	buf := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	_, err := w.Write(append(buf, body...))
	return err
}
