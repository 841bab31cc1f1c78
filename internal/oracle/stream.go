package oracle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// StreamConfig configures a CandleStream.
type StreamConfig struct {
	URL               string        // Kline stream URL (e.g. wss://stream.binance.com:9443/ws/solusdc@kline_1m)
	PingInterval      time.Duration // Keepalive ping cadence
	PingTimeout       time.Duration // Max silence before forcing a reconnect
	WriteTimeout      time.Duration // Write deadline for control frames
	BufferSize        int           // Candle channel buffer size
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection
}

// DefaultStreamConfig returns sensible defaults for the given URL.
func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL:               url,
		PingInterval:      30 * time.Second,
		PingTimeout:       90 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1024,
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  time.Minute,
	}
}

// StreamStats contains runtime statistics.
type StreamStats struct {
	Ticks      int64 // All kline updates received
	Candles    int64 // Closed bars received
	Reconnects int64
}

// CandleStream tails an exchange kline WebSocket feed and emits parsed
// candles. Every kline update is emitted; closed bars carry Final=true.
// The stream reconnects with exponential backoff until Close is called.
type CandleStream struct {
	cfg    StreamConfig
	logger *slog.Logger

	// Output channels
	candles chan Candle
	errors  chan error
	done    chan struct{}

	// State
	mu         sync.RWMutex
	conn       *websocket.Conn
	connDone   chan struct{}
	connected  bool
	closed     bool
	lastPongAt time.Time
	stats      StreamStats

	wg sync.WaitGroup
}

// NewCandleStream creates a new stream client.
func NewCandleStream(cfg StreamConfig, logger *slog.Logger) *CandleStream {
	if logger == nil {
		logger = slog.Default()
	}

	return &CandleStream{
		cfg:     cfg,
		logger:  logger,
		candles: make(chan Candle, cfg.BufferSize),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// Connect dials the feed and starts the read loop. After a successful
// connect the stream owns reconnection until Close.
func (s *CandleStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.mu.Unlock()

	if err := s.dial(ctx); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.run()

	return nil
}

// Close gracefully shuts down the stream.
func (s *CandleStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	conn := s.conn
	s.mu.Unlock()

	// Signal goroutines to stop
	close(s.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Candles returns the parsed candle channel.
func (s *CandleStream) Candles() <-chan Candle {
	return s.candles
}

// Errors returns a channel of connection errors. Errors are
// informational; the stream reconnects on its own.
func (s *CandleStream) Errors() <-chan error {
	return s.errors
}

// IsConnected returns the current connection state.
func (s *CandleStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Stats returns current stream statistics.
func (s *CandleStream) Stats() StreamStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// dial establishes one connection and starts its heartbeat.
func (s *CandleStream) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}

	connDone := make(chan struct{})

	// The exchange pings us; answer and record liveness either way.
	conn.SetPingHandler(func(data string) error {
		s.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrStreamClosed
	}
	s.conn = conn
	s.connDone = connDone
	s.connected = true
	s.lastPongAt = time.Now()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.heartbeatLoop(conn, connDone)

	s.logger.Debug("candle stream connected", "url", s.cfg.URL)

	return nil
}

// run owns the connection lifecycle: read until failure, then redial
// with exponential backoff.
func (s *CandleStream) run() {
	defer s.wg.Done()

	wait := s.cfg.ReconnectBaseWait

	for {
		s.readUntilError()

		select {
		case <-s.done:
			return
		default:
		}

		for {
			s.logger.Info("candle stream reconnecting", "wait", wait)

			select {
			case <-s.done:
				return
			case <-time.After(wait):
			}

			wait *= 2
			if wait > s.cfg.ReconnectMaxWait {
				wait = s.cfg.ReconnectMaxWait
			}

			dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.dial(dialCtx)
			cancel()
			if err != nil {
				s.logger.Warn("candle stream reconnect failed", "err", err)
				continue
			}

			s.mu.Lock()
			s.stats.Reconnects++
			s.mu.Unlock()

			wait = s.cfg.ReconnectBaseWait
			break
		}
	}
}

// readUntilError consumes the current connection until it fails or the
// stream closes.
func (s *CandleStream) readUntilError() {
	s.mu.RLock()
	conn := s.conn
	connDone := s.connDone
	s.mu.RUnlock()

	if conn == nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()

			close(connDone)
			conn.Close()

			// Ignore errors after Close() is called
			select {
			case <-s.done:
			default:
				select {
				case s.errors <- err:
				default:
				}
			}
			return
		}

		s.handleMessage(data)
	}
}

// handleMessage parses one kline payload. Messages without a kline
// object (subscription acks, pongs) are ignored.
func (s *CandleStream) handleMessage(data []byte) {
	k := gjson.GetBytes(data, "k")
	if !k.Exists() {
		return
	}

	c := Candle{
		Time:   k.Get("t").Int(),
		Open:   k.Get("o").Float(),
		High:   k.Get("h").Float(),
		Low:    k.Get("l").Float(),
		Close:  k.Get("c").Float(),
		Volume: k.Get("v").Float(),
		Final:  k.Get("x").Bool(),
	}

	s.mu.Lock()
	s.stats.Ticks++
	if c.Final {
		s.stats.Candles++
	}
	s.mu.Unlock()

	select {
	case s.candles <- c:
	case <-s.done:
	default:
		s.logger.Warn("candle buffer full, dropping candle")
	}
}

// heartbeatLoop pings the current connection and forces a reconnect
// when the feed goes silent.
func (s *CandleStream) heartbeatLoop(conn *websocket.Conn, connDone chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-connDone:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "err", err)
			}

			s.mu.RLock()
			lastPong := s.lastPongAt
			s.mu.RUnlock()

			if time.Since(lastPong) > s.cfg.PingTimeout {
				s.logger.Warn("candle stream stale, forcing reconnect",
					"last_pong", lastPong,
					"timeout", s.cfg.PingTimeout,
				)
				// Closing the conn errors the read loop, which reconnects.
				conn.Close()
				return
			}
		}
	}
}

// touch records feed liveness.
func (s *CandleStream) touch() {
	s.mu.Lock()
	s.lastPongAt = time.Now()
	s.mu.Unlock()
}
