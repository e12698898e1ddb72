package campuslink

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pborman/uuid"
	"nhooyr.io/websocket"
)

// ============================================================================
// Wire format
// ============================================================================

// pushEnvelope is the wire format for both directions of the push channel.
type pushEnvelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Server-emitted events.
const (
	eventReceiveMessage  = "receiveMessage"
	eventNewNotification = "newNotification"
)

// joinPayload announces the local user on a fresh connection.
type joinPayload struct {
	UserID string `json:"userId"`
}

// ============================================================================
// Configuration
// ============================================================================

// PushConfig configures the push channel.
type PushConfig struct {
	Token                string
	UserID               string
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	HTTPClient           *http.Client
}

func (c *PushConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// PushState represents the connection state.
type PushState string

const (
	PushDisconnected PushState = "disconnected"
	PushConnecting   PushState = "connecting"
	PushConnected    PushState = "connected"
	PushReconnecting PushState = "reconnecting"
)

// ============================================================================
// Dispatcher
// ============================================================================

type pushDispatcher struct {
	mu             sync.RWMutex
	nextID         int
	onMessage      map[int]func(Message)
	onNotification map[int]func(Notification)
	onConnected    map[int]func()
	onDisconnected map[int]func(reason string)
}

func newPushDispatcher() *pushDispatcher {
	return &pushDispatcher{
		onMessage:      make(map[int]func(Message)),
		onNotification: make(map[int]func(Notification)),
		onConnected:    make(map[int]func()),
		onDisconnected: make(map[int]func(reason string)),
	}
}

// dispatch decodes and fans out one server event. Handlers run on the read
// loop so deliveries are observed in arrival order; they must not block.
func (d *pushDispatcher) dispatch(env pushEnvelope) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch env.Event {
	case eventReceiveMessage:
		var msg Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			glog.Errorf("push: bad receiveMessage payload: %v", err)
			return
		}
		for _, h := range d.onMessage {
			h(msg)
		}
	case eventNewNotification:
		var n Notification
		if err := json.Unmarshal(env.Payload, &n); err != nil {
			glog.Errorf("push: bad newNotification payload: %v", err)
			return
		}
		for _, h := range d.onNotification {
			h(n)
		}
	default:
		glog.V(3).Infof("push: ignoring event %q", env.Event)
	}
}

func (d *pushDispatcher) emitConnected() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.onConnected {
		h()
	}
}

func (d *pushDispatcher) emitDisconnected(reason string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.onDisconnected {
		h(reason)
	}
}

// ============================================================================
// Reconnector
// ============================================================================

type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func newReconnector(config *PushConfig) *reconnector {
	return &reconnector{
		baseDelay:   config.ReconnectBaseDelay,
		maxDelay:    config.ReconnectMaxDelay,
		maxAttempts: config.MaxReconnectAttempts,
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts == 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

func (r *reconnector) nextDelay() time.Duration {
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

// ============================================================================
// PushClient
// ============================================================================

// PushClient is the persistent duplex channel for server-initiated events.
// It is an explicitly owned resource: construct it once at application start,
// Connect, and Close on teardown. Each (re)connect emits a one-time join for
// the configured user; subscriptions are explicit and return an unsubscribe
// func so conversation switches never accumulate duplicate handlers.
type PushClient struct {
	baseURL string
	config  *PushConfig

	mu               sync.Mutex
	conn             *websocket.Conn
	state            PushState
	intentionalClose bool
	cancelFn         context.CancelFunc

	dispatcher *pushDispatcher
	recon      *reconnector
}

// NewPushClient creates a push channel client. Call Connect to establish the
// connection.
func NewPushClient(baseURL string, config *PushConfig) *PushClient {
	cfg := PushConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.defaults()
	return &PushClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		config:     &cfg,
		state:      PushDisconnected,
		dispatcher: newPushDispatcher(),
		recon:      newReconnector(&cfg),
	}
}

// OnMessage subscribes to receiveMessage events. The returned func removes
// the subscription.
func (p *PushClient) OnMessage(h func(Message)) func() {
	d := p.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.onMessage[id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onMessage, id)
	}
}

// OnNotification subscribes to newNotification events. The returned func
// removes the subscription.
func (p *PushClient) OnNotification(h func(Notification)) func() {
	d := p.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.onNotification[id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onNotification, id)
	}
}

// OnConnected subscribes to the connected meta-event (fires after join).
func (p *PushClient) OnConnected(h func()) func() {
	d := p.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.onConnected[id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onConnected, id)
	}
}

// OnDisconnected subscribes to the disconnected meta-event.
func (p *PushClient) OnDisconnected(h func(reason string)) func() {
	d := p.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.onDisconnected[id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.onDisconnected, id)
	}
}

// State returns the current connection state.
func (p *PushClient) State() PushState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PushClient) wsURL() string {
	u := strings.Replace(p.baseURL, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	u += "/ws"
	if p.config.Token != "" {
		u += "?token=" + p.config.Token
	}
	return u
}

// Connect establishes the websocket connection and emits the join event.
func (p *PushClient) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state == PushConnected || p.state == PushConnecting {
		p.mu.Unlock()
		return nil
	}
	p.state = PushConnecting
	p.intentionalClose = false
	p.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, p.wsURL(), &websocket.DialOptions{
		HTTPClient: p.config.HTTPClient,
	})
	if err != nil {
		p.setState(PushDisconnected)
		return fmt.Errorf("push dial: %w", err)
	}

	if err := p.writeEnvelope(ctx, conn, "join", joinPayload{UserID: p.config.UserID}); err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		p.setState(PushDisconnected)
		return fmt.Errorf("push join: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.state = PushConnected
	p.mu.Unlock()
	p.recon.markConnected()
	glog.V(1).Infof("push: connected, joined as %s", p.config.UserID)

	connCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancelFn = cancel
	p.mu.Unlock()

	p.dispatcher.emitConnected()
	go p.readLoop(connCtx, conn)
	return nil
}

// Close tears the connection down and suppresses reconnection.
func (p *PushClient) Close() error {
	p.mu.Lock()
	p.intentionalClose = true
	if p.cancelFn != nil {
		p.cancelFn()
		p.cancelFn = nil
	}
	conn := p.conn
	p.conn = nil
	p.state = PushDisconnected
	p.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (p *PushClient) setState(s PushState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *PushClient) writeEnvelope(ctx context.Context, conn *websocket.Conn, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(pushEnvelope{
		Event:     event,
		Payload:   raw,
		RequestID: strings.ReplaceAll(uuid.New(), "-", ""),
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (p *PushClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			p.mu.Lock()
			intentional := p.intentionalClose
			p.conn = nil
			p.state = PushDisconnected
			p.mu.Unlock()

			if intentional {
				return
			}
			glog.V(1).Infof("push: connection lost: %v", err)
			p.dispatcher.emitDisconnected(err.Error())
			if p.config.AutoReconnect && p.recon.shouldReconnect() {
				p.scheduleReconnect()
			}
			return
		}

		var env pushEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			glog.V(2).Infof("push: dropping malformed frame: %v", err)
			continue
		}
		p.dispatcher.dispatch(env)
	}
}

func (p *PushClient) scheduleReconnect() {
	delay := p.recon.nextDelay()
	p.setState(PushReconnecting)
	glog.V(1).Infof("push: reconnecting in %s (attempt %d)", delay, p.recon.attempt)

	time.Sleep(delay)

	p.mu.Lock()
	intentional := p.intentionalClose
	p.mu.Unlock()
	if intentional {
		return
	}

	if err := p.Connect(context.Background()); err != nil {
		if p.config.AutoReconnect && p.recon.shouldReconnect() {
			p.scheduleReconnect()
		} else {
			p.setState(PushDisconnected)
		}
	}
}
