package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/luma/relay/protocol"
)

var (
	ErrClosed             = errors.New("Connection is closed")
	ErrIdentityUnresolved = errors.New("Probe did not match a target to take the identity from")
)

// Handler receives an inbound payload matched to a subscription.
type Handler func(p *protocol.Payload)

type Options struct {
	// Builders defaults to protocol.Builders
	Builders *protocol.Registry

	// Limiter, when set, throttles every outbound payload.
	Limiter *rate.Limiter

	Metrics *Metrics

	// OnClose is called once, after the correlation table has been cleared.
	OnClose func(c *Client)

	Log *zap.Logger
}

// Client owns a single console connection. It correlates command responses
// with their requests and event deliveries with their subscribers.
type Client struct {
	id   uuid.UUID
	conn Conn

	builders *protocol.Registry
	limiter  *rate.Limiter
	metrics  *Metrics
	onClose  func(c *Client)

	table *table

	// events are delivered to subscribers on their own goroutine so a
	// subscriber can issue commands without stalling the read loop
	events *eventQueue

	writeMu sync.Mutex

	serving       atomic.Bool
	closed        atomic.Bool
	disconnecting atomic.Bool
	done          chan struct{}

	identityMu    sync.Mutex
	identity      string
	identityGroup singleflight.Group

	log *zap.Logger
}

type result struct {
	payload *protocol.Payload
	err     error
}

func New(conn Conn, options Options) *Client {
	builders := options.Builders
	if builders == nil {
		builders = protocol.Builders
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.New()

	return &Client{
		id:       id,
		conn:     conn,
		builders: builders,
		limiter:  options.Limiter,
		metrics:  options.Metrics,
		onClose:  options.OnClose,
		table:    newTable(),
		events:   newEventQueue(),
		done:     make(chan struct{}),
		log: log.With(
			zap.Stringer("client", id),
			zap.String("remote", conn.RemoteAddr())),
	}
}

// ID is a process local identifier for this connection.
func (c *Client) ID() uuid.UUID {
	return c.id
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

// Name returns the cached identity, or "" if it has not been resolved yet.
func (c *Client) Name() string {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()

	return c.identity
}

// Done is closed once the connection has been torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Serve runs the read loop until the connection closes. It must be called
// exactly once. Serve returns nil when the connection was closed normally.
func (c *Client) Serve() error {
	if !c.serving.CompareAndSwap(false, true) {
		return errors.New("Serve called twice")
	}

	log := c.log.Named("readLoop")

	var eventWaiter sync.WaitGroup
	eventWaiter.Add(1)

	go func() {
		defer eventWaiter.Done()
		c.eventLoop()
	}()

	var readErr error

	for {
		data, err := c.conn.ReadMessage()
		if err != nil {
			if !isClosedErr(err) && !c.disconnecting.Load() {
				readErr = err
				log.Warn("Connection closed unexpectedly", zap.Error(err))
			} else {
				log.Info("Connection closed")
			}

			break
		}

		p, err := protocol.ReadPayload(data)
		if err != nil {
			c.metrics.drop("malformed")
			log.Warn("Failed to parse console message", zap.Error(err))
			continue
		}

		c.dispatch(p)
	}

	c.teardown()

	// Deliveries still queued were retired by teardown and are skipped.
	c.events.close()
	eventWaiter.Wait()

	if c.onClose != nil {
		c.onClose(c)
	}

	return readErr
}

// Disconnect closes the underlying connection. The read loop notices and
// tears the client down.
func (c *Client) Disconnect() error {
	c.disconnecting.Store(true)
	return c.conn.Close()
}

// RunCommand sends commandLine and waits for the console's response to it.
//
// There is no built in timeout: the wait ends when the response arrives, ctx
// is done, or the connection closes (ErrClosed). A response the console
// rejected is still returned, check Payload.ErrorOrNil.
func (c *Client) RunCommand(ctx context.Context, commandLine string) (*protocol.Payload, error) {
	p, err := c.builders.Command(commandLine)
	if err != nil {
		return nil, err
	}

	resp, err := c.request(ctx, p)

	switch {
	case err == nil:
		c.metrics.command("ok")
	case errors.Is(err, ErrClosed):
		c.metrics.command("closed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.metrics.command("cancelled")
	default:
		c.metrics.command("error")
	}

	return resp, err
}

// Subscribe asks the console to push eventName and calls h for every
// delivery until Unsubscribe. A later Subscribe for the same event replaces
// h. The console's acknowledgement is matched separately, by request id.
func (c *Client) Subscribe(ctx context.Context, eventName string, h Handler) error {
	p, err := c.builders.Event(eventName, true)
	if err != nil {
		return err
	}

	if h == nil {
		h = func(*protocol.Payload) {}
	}

	sub := &entry{key: EventKey(eventName), handler: h}

	prev, ok := c.table.set(sub)
	if !ok {
		return ErrClosed
	}

	if prev == nil {
		c.metrics.subscribed(1)
	}

	log := c.log.With(zap.String("eventName", eventName))

	ack := &entry{
		key:  RequestKey(p.Header.RequestID),
		once: true,
		handler: func(resp *protocol.Payload) {
			if err := resp.ErrorOrNil(); err != nil {
				log.Warn("Subscription rejected", zap.Error(err))
				return
			}

			log.Debug("Subscription acknowledged")
		},
	}

	if _, ok := c.table.set(ack); !ok {
		return ErrClosed
	}

	if err := c.send(ctx, p); err != nil {
		c.table.deleteIf(ack)

		// A failed resubscribe leaves the earlier subscription in place
		if c.table.restore(sub, prev) && prev == nil {
			c.metrics.subscribed(-1)
		}

		return err
	}

	return nil
}

// Unsubscribe stops delivering eventName immediately, then tells the console.
// The local removal does not wait for, or depend on, the console.
func (c *Client) Unsubscribe(ctx context.Context, eventName string) error {
	if c.table.delete(EventKey(eventName)) {
		c.metrics.subscribed(-1)
	}

	p, err := c.builders.Event(eventName, false)
	if err != nil {
		return err
	}

	return c.send(ctx, p)
}

// Test evaluates pred against this client. A selector is tested with a
// probe command, a function is called directly.
func (c *Client) Test(ctx context.Context, pred Predicate) (bool, error) {
	switch pred.kind {
	case predicateSelector:
		resp, err := c.probe(ctx, pred.selector)
		if err != nil {
			return false, err
		}

		return matched(resp), nil

	case predicateFunc:
		return pred.fn(ctx, c)

	default:
		return false, ErrInvalidPredicate
	}
}

// Identity resolves the player name behind this connection and caches it for
// the lifetime of the client. Concurrent callers share a single probe, which
// outlives any one caller's ctx and ends with a response or the connection.
func (c *Client) Identity(ctx context.Context) (string, error) {
	if name := c.Name(); name != "" {
		return name, nil
	}

	probeCtx := context.WithoutCancel(ctx)

	resultChan := c.identityGroup.DoChan("identity", func() (interface{}, error) {
		if name := c.Name(); name != "" {
			return name, nil
		}

		resp, err := c.probe(probeCtx, "")
		if err != nil {
			return "", err
		}

		name := resp.Get("victim.0").String()
		if !matched(resp) || name == "" {
			return "", ErrIdentityUnresolved
		}

		c.identityMu.Lock()
		c.identity = name
		c.identityMu.Unlock()

		c.log.Info("Resolved identity", zap.String("name", name))

		return name, nil
	})

	select {
	case r := <-resultChan:
		if r.Err != nil {
			return "", r.Err
		}

		return r.Val.(string), nil

	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) probe(ctx context.Context, selector string) (*protocol.Payload, error) {
	return c.RunCommand(ctx, probeCommand(selector))
}

// request registers a once entry under p's request id, sends p and waits for
// the matching response.
func (c *Client) request(ctx context.Context, p *protocol.Payload) (*protocol.Payload, error) {
	respChan := make(chan result, 1)

	e := &entry{
		key:  RequestKey(p.Header.RequestID),
		once: true,
		handler: func(resp *protocol.Payload) {
			respChan <- result{payload: resp}
		},
		cancel: func(err error) {
			respChan <- result{err: err}
		},
	}

	if _, ok := c.table.set(e); !ok {
		return nil, ErrClosed
	}

	if err := c.send(ctx, p); err != nil {
		c.table.deleteIf(e)
		return nil, err
	}

	select {
	case r := <-respChan:
		return r.payload, r.err

	case <-ctx.Done():
		c.table.deleteIf(e)
		return nil, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, p *protocol.Payload) error {
	if c.closed.Load() {
		return ErrClosed
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	data, err := p.MarshalJSON()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(data)
	c.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("Failed to send %s: %w", p.Header.MessagePurpose, err)
	}

	return nil
}

func (c *Client) dispatch(p *protocol.Payload) {
	key, ok := KeyFor(p.Header)
	if !ok {
		c.metrics.drop("uncorrelated")
		c.log.Debug("Dropping message without request id or event name")
		return
	}

	e, ok := c.table.take(key)
	if !ok {
		c.metrics.drop("unmatched")
		c.log.Debug("Dropping unmatched message", zap.Stringer("key", key))
		return
	}

	c.metrics.dispatch(key.Kind)

	if e.once {
		e.handler(p)
		return
	}

	// Goes to the handler registered now, even if it is replaced before
	// the delivery runs.
	c.events.push(delivery{entry: e, payload: p})
}

func (c *Client) eventLoop() {
	for {
		d, ok := c.events.pop()
		if !ok {
			return
		}

		// Unsubscribed while this delivery was queued
		if !d.entry.live() {
			c.metrics.drop("unsubscribed")
			continue
		}

		d.entry.handler(d.payload)
	}
}

func (c *Client) teardown() {
	c.closed.Store(true)

	for _, e := range c.table.clear() {
		if e.key.Kind == KeyEvent {
			c.metrics.subscribed(-1)
		}

		if e.cancel != nil {
			e.cancel(ErrClosed)
		}
	}

	close(c.done)
}
