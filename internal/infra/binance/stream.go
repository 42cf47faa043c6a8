package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	maxRetries       = 10
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
)

// TickerHandler receives every parsed ticker event. It runs on the read goroutine.
type TickerHandler func(domain.TickerEvent)

// StateHandler receives connection lifecycle transitions.
type StateHandler func(state domain.StreamState, err error)

// Config configures a Stream.
type Config struct {
	URL       string
	Symbols   []string // Exchange pairs, e.g. "BTCUSDT"
	Reconnect bool     // Redial with backoff after a failure
}

// Stream handles the Binance ticker WebSocket connection (Stream Subscriber).
// Message handling (onTicker) is kept apart from the lifecycle (state machine).
type Stream struct {
	cfg      Config
	onTicker TickerHandler
	onState  StateHandler
	metrics  *infra.Metrics
	logger   *slog.Logger

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	state   domain.StreamState
	reqID   atomic.Int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStream creates a new ticker stream subscriber
func NewStream(cfg Config, onTicker TickerHandler, onState StateHandler, metrics *infra.Metrics) *Stream {
	return &Stream{
		cfg:      cfg,
		onTicker: onTicker,
		onState:  onState,
		metrics:  metrics,
		logger:   slog.Default().With("module", "binance_stream"),
		state:    domain.StreamClosed,
	}
}

// Connect starts the WebSocket connection loop. It does not block.
func (s *Stream) Connect(ctx context.Context) error {
	if len(s.cfg.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols to subscribe", domain.ErrSubscriptionFailure)
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.connectionLoop(ctx)

	return nil
}

// State returns the current lifecycle state.
func (s *Stream) State() domain.StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) setState(state domain.StreamState, err error) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if !changed {
		return
	}
	if s.metrics != nil {
		s.metrics.SetStreamOpen(state == domain.StreamOpen)
	}
	if s.onState != nil {
		s.onState(state, err)
	}
}

// connectionLoop dials, reads until failure, and optionally redials with exponential backoff
func (s *Stream) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Stream panic recovered", slog.Any("panic", r))
			s.setState(domain.StreamErrored, fmt.Errorf("%w: panic: %v", domain.ErrSubscriptionFailure, r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			s.setState(domain.StreamClosed, nil)
			return
		default:
		}

		err := s.connect(ctx)
		if err == nil {
			retryCount = 0
			err = s.readLoop(ctx)
		}

		if ctx.Err() != nil {
			s.setState(domain.StreamClosed, nil)
			return
		}

		s.logger.Warn("Stream connection lost", slog.Any("error", err), slog.Int("retry", retryCount))
		s.setState(domain.StreamErrored, fmt.Errorf("%w: %w", domain.ErrSubscriptionFailure, err))

		if !s.cfg.Reconnect {
			return
		}

		delay := infra.CalculateBackoff(retryCount)
		retryCount++
		if retryCount > maxRetries {
			s.logger.Error("Stream max retries exceeded, resetting counter")
			retryCount = 0
		}

		select {
		case <-ctx.Done():
			s.setState(domain.StreamClosed, nil)
			return
		case <-time.After(delay):
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	s.setState(domain.StreamConnecting, nil)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.subscribe(); err != nil {
		s.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	s.setState(domain.StreamOpen, nil)
	s.logger.Info("Stream connected", slog.Int("subs", len(s.cfg.Symbols)))
	return nil
}

func (s *Stream) subscribe() error {
	msg := subscribeRequest{
		Method: "SUBSCRIBE",
		Params: StreamNames(s.cfg.Symbols),
		ID:     s.reqID.Add(1),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, b)
}

func (s *Stream) threadSafeWrite(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return errors.New("no conn")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(msgType, data)
}

// readLoop returns the error that ended the connection.
func (s *Stream) readLoop(ctx context.Context) error {
	defer s.closeConnection()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return errors.New("connection closed")
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return domain.NewNetworkError("read", err)
		}
		s.handleMessage(msg)
	}
}

// handleMessage is the single inbound-message handler. Malformed frames are dropped here.
func (s *Stream) handleMessage(msg []byte) {
	events, err := ParseFrame(msg)
	if errors.Is(err, domain.ErrSubscriptionFailure) {
		s.logger.Warn("Stream rejected request", slog.Any("error", err))
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordParseFailure()
		}
		s.logger.Debug("Dropping stream frame", slog.Any("error", err), slog.Int("bytes", len(msg)))
		return
	}

	if s.onTicker == nil {
		return
	}
	for _, ev := range events {
		s.onTicker(ev)
	}
}

func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Disconnect closes the stream and waits for the loop to exit. Safe to call more than once.
func (s *Stream) Disconnect() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
	s.setState(domain.StreamClosed, nil)
}
