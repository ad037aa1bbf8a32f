package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

var (
	ErrNotConnected = errors.New("live: not connected")
	ErrAlreadyOpen  = errors.New("live: channel already connecting or connected")
	ErrNoReceipt    = errors.New("live: no receipt from broker")
)

// ServerError is an ERROR frame sent by the broker.
type ServerError struct {
	Message string
	Body    string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return "stomp error: " + e.Message
	}
	return fmt.Sprintf("stomp error: %s: %s", e.Message, e.Body)
}

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReceiptTimeout   time.Duration
	// BinaryFrames sends frames as binary websocket messages.
	BinaryFrames bool
	Reconnect    *ReconnectPolicy
	Dialer       *websocket.Dialer
	Metrics      metrics.Recorder
	Logger       *zap.Logger
}

// OptionsFromConfig builds channel options for the broker endpoint under stompURL.
func OptionsFromConfig(stompURL string, cfg config.LiveConfig) Options {
	return Options{
		URL:              stompURL + Endpoint,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReceiptTimeout:   cfg.ReceiptTimeout,
		BinaryFrames:     cfg.BinaryFrames,
		Reconnect:        PolicyFromConfig(cfg.Reconnect),
	}
}

// Handler receives MESSAGE frames on the channel's read goroutine. It must
// not block and must not call Disconnect.
type Handler func(*Frame)

type Subscription struct {
	ch      *Channel
	id      string
	dest    string
	header  Header
	handler Handler
	once    sync.Once
}

func (s *Subscription) ID() string          { return s.id }
func (s *Subscription) Destination() string { return s.dest }

// Unsubscribe is idempotent. It does nothing once the transport is gone.
func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() { err = s.ch.unsubscribe(s) })
	return err
}

func (s *Subscription) frame() *Frame {
	h := s.header.Clone()
	h["id"] = s.id
	h["destination"] = s.dest
	h["ack"] = "auto"
	return NewFrame(CmdSubscribe, h, nil)
}

// Channel is a STOMP 1.2 client over one websocket.
// States: Disconnected -> Connecting -> Connected -> Disconnected.
type Channel struct {
	opts    Options
	log     *zap.Logger
	metrics metrics.Recorder

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	header   Header
	subs     map[string]*Subscription
	receipts map[string]chan struct{}
	life     context.Context
	stop     context.CancelFunc
	readDone chan struct{}

	writeMu sync.Mutex
}

func NewChannel(opts Options) *Channel {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 2 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("live")
	}
	return &Channel{
		opts:     opts,
		log:      opts.Logger.With(zap.String("url", opts.URL)),
		metrics:  opts.Metrics,
		subs:     make(map[string]*Subscription),
		receipts: make(map[string]chan struct{}),
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setStateLocked(s State) {
	c.state = s
	c.metrics.LiveState(s.String())
}

// Connect dials the broker and completes the CONNECT handshake. The
// Authorization header, if any, is also sent on the websocket upgrade.
func (c *Channel) Connect(ctx context.Context, header Header) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.setStateLocked(Connecting)
	c.header = header.Clone()
	life, stop := context.WithCancel(context.Background())
	c.life, c.stop = life, stop
	c.mu.Unlock()

	conn, err := c.dial(ctx, header)

	c.mu.Lock()
	defer c.mu.Unlock()
	if life.Err() != nil {
		if conn != nil {
			conn.Close()
		}
		return ErrNotConnected
	}
	if err != nil {
		stop()
		c.stop = nil
		c.setStateLocked(Disconnected)
		c.log.Warn("stomp connect failed", zap.Error(err))
		return err
	}
	c.attachLocked(conn)
	c.setStateLocked(Connected)
	c.log.Debug("stomp connected")
	return nil
}

func (c *Channel) attachLocked(conn *websocket.Conn) {
	done := make(chan struct{})
	c.conn = conn
	c.readDone = done
	go c.readLoop(conn, done)
}

func (c *Channel) dial(ctx context.Context, header Header) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	upgrade := http.Header{}
	if auth := header.Get("Authorization"); auth != "" {
		upgrade.Set("Authorization", auth)
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, upgrade)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	success := false
	defer func() {
		if !success {
			conn.Close()
		}
	}()

	h := header.Clone()
	h["accept-version"] = "1.2"
	h["heart-beat"] = "0,0"
	if u, err := url.Parse(c.opts.URL); err == nil {
		h["host"] = u.Hostname()
	}
	if err := c.write(conn, NewFrame(CmdConnect, h, nil)); err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("await CONNECTED: %w", err)
		}
		f, err := Decode(msg)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		switch f.Command {
		case CmdConnected:
			conn.SetReadDeadline(time.Time{})
			success = true
			return conn, nil
		case CmdError:
			return nil, &ServerError{Message: f.Header.Get("message"), Body: string(f.Body)}
		default:
			return nil, fmt.Errorf("%w: expected CONNECTED, got %s", ErrMalformedFrame, f.Command)
		}
	}
}

func (c *Channel) write(conn *websocket.Conn, f *Frame) error {
	kind := websocket.TextMessage
	if c.opts.BinaryFrames {
		kind = websocket.BinaryMessage
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return conn.WriteMessage(kind, f.Encode())
}

func (c *Channel) send(f *Frame) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != Connected || conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, f)
}

// Subscribe registers handler for dest. Extra headers go on the SUBSCRIBE frame.
func (c *Channel) Subscribe(dest string, header Header, handler Handler) (*Subscription, error) {
	sub, err := c.register(dest, header, handler)
	if err != nil {
		return nil, err
	}

	if err := c.send(sub.frame()); err != nil {
		c.forget(sub)
		return nil, err
	}
	return sub, nil
}

// SubscribeAck is Subscribe with a receipt: it returns once the broker has
// acknowledged the subscription, so no message to dest is missed after it.
// Without a receipt within ReceiptTimeout the subscription is dropped and
// ErrNoReceipt returned.
func (c *Channel) SubscribeAck(ctx context.Context, dest string, header Header, handler Handler) (*Subscription, error) {
	sub, err := c.register(dest, header, handler)
	if err != nil {
		return nil, err
	}

	if err := c.awaitReceipt(ctx, sub.frame()); err != nil {
		c.forget(sub)
		if !errors.Is(err, ErrNotConnected) {
			_ = c.send(NewFrame(CmdUnsubscribe, Header{"id": sub.id}, nil))
		}
		return nil, err
	}
	return sub, nil
}

func (c *Channel) register(dest string, header Header, handler Handler) (*Subscription, error) {
	sub := &Subscription{
		ch:      c,
		id:      "sub-" + uuid.NewString(),
		dest:    dest,
		header:  header.Clone(),
		handler: handler,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return nil, ErrNotConnected
	}
	c.subs[sub.id] = sub
	return sub, nil
}

func (c *Channel) forget(s *Subscription) {
	c.mu.Lock()
	delete(c.subs, s.id)
	c.mu.Unlock()
}

func (c *Channel) unsubscribe(s *Subscription) error {
	c.mu.Lock()
	_, ok := c.subs[s.id]
	delete(c.subs, s.id)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	err := c.send(NewFrame(CmdUnsubscribe, Header{"id": s.id}, nil))
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Publish sends body to dest as JSON unless header says otherwise.
func (c *Channel) Publish(dest string, header Header, body []byte) error {
	h := header.Clone()
	h["destination"] = dest
	if _, ok := h["content-type"]; !ok {
		h["content-type"] = "application/json"
	}
	h["content-length"] = strconv.Itoa(len(body))
	return c.send(NewFrame(CmdSend, h, body))
}

// Disconnect unsubscribes everything, sends DISCONNECT and waits briefly for
// its receipt, then closes the transport. Safe to call in any state.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.stop == nil {
		c.mu.Unlock()
		return nil
	}
	// cancelled first so the broker closing the socket is not seen as a drop
	c.stop()
	c.stop = nil
	state := c.state
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil {
			c.log.Warn("stomp unsubscribe failed", zap.String("destination", s.dest), zap.Error(err))
		}
	}
	if state == Connected {
		if err := c.awaitReceipt(ctx, NewFrame(CmdDisconnect, Header{}, nil)); err != nil {
			c.log.Debug("disconnect receipt", zap.Error(err))
		}
	}

	c.mu.Lock()
	conn, done := c.conn, c.readDone
	c.conn = nil
	c.readDone = nil
	c.subs = make(map[string]*Subscription)
	c.setStateLocked(Disconnected)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		c.log.Debug("close transport", zap.Error(err))
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	c.log.Debug("stomp disconnected")
	return nil
}

// awaitReceipt sends f with a receipt header and waits for the RECEIPT.
func (c *Channel) awaitReceipt(ctx context.Context, f *Frame) error {
	id := uuid.NewString()
	f.Header["receipt"] = id
	got := make(chan struct{})
	c.mu.Lock()
	c.receipts[id] = got
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.receipts, id)
		c.mu.Unlock()
	}()

	if err := c.send(f); err != nil {
		c.log.Warn("stomp send failed", zap.String("command", f.Command), zap.Error(err))
		return err
	}
	timer := time.NewTimer(c.opts.ReceiptTimeout)
	defer timer.Stop()
	select {
	case <-got:
		return nil
	case <-timer.C:
		c.log.Debug("stomp receipt timed out", zap.String("command", f.Command))
		return ErrNoReceipt
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.dropped(conn, err)
			return
		}
		f, err := Decode(msg)
		if err != nil {
			c.log.Warn("stomp frame dropped", zap.Error(err))
			continue
		}
		if f != nil {
			c.dispatch(f)
		}
	}
}

func (c *Channel) dispatch(f *Frame) {
	switch f.Command {
	case CmdMessage:
		c.mu.Lock()
		sub := c.subs[f.Header.Get("subscription")]
		c.mu.Unlock()
		if sub == nil {
			c.log.Debug("message for unknown subscription", zap.String("subscription", f.Header.Get("subscription")))
			return
		}
		c.metrics.LiveMessage(sub.dest)
		sub.handler(f)
	case CmdReceipt:
		id := f.Header.Get("receipt-id")
		c.mu.Lock()
		got := c.receipts[id]
		delete(c.receipts, id)
		c.mu.Unlock()
		if got != nil {
			close(got)
		}
	case CmdError:
		c.log.Error("stomp server error",
			zap.String("message", f.Header.Get("message")),
			zap.ByteString("body", f.Body),
		)
	}
}

// dropped handles a transport that failed without Disconnect.
func (c *Channel) dropped(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn || c.life == nil || c.life.Err() != nil {
		return
	}
	c.conn = nil
	c.log.Warn("stomp connection lost", zap.Error(cause))

	if c.opts.Reconnect == nil {
		c.stop()
		c.stop = nil
		c.subs = make(map[string]*Subscription)
		c.setStateLocked(Disconnected)
		return
	}
	c.setStateLocked(Connecting)
	go c.reconnect(c.life, c.header.Clone())
}

func (c *Channel) reconnect(life context.Context, header Header) {
	p := c.opts.Reconnect
	b := p.backOff()
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		wait := b.NextBackOff()
		if wait < 0 {
			break
		}
		select {
		case <-life.Done():
			return
		case <-time.After(wait):
		}

		conn, err := c.dial(life, header)
		if err != nil {
			c.log.Warn("stomp reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		c.mu.Lock()
		if life.Err() != nil {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.attachLocked(conn)
		c.setStateLocked(Connected)
		subs := make([]*Subscription, 0, len(c.subs))
		for _, s := range c.subs {
			subs = append(subs, s)
		}
		c.mu.Unlock()

		for _, s := range subs {
			if err := c.send(s.frame()); err != nil {
				c.log.Warn("stomp resubscribe failed", zap.String("destination", s.dest), zap.Error(err))
			}
		}
		c.log.Info("stomp reconnected", zap.Int("attempt", attempt), zap.Int("subscriptions", len(subs)))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if life.Err() != nil {
		return
	}
	c.stop()
	c.stop = nil
	c.subs = make(map[string]*Subscription)
	c.setStateLocked(Disconnected)
	c.log.Error("stomp reconnect gave up", zap.Int("attempts", p.attempts()))
}
