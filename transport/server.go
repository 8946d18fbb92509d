package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/luma/relay/client"
	"github.com/luma/relay/storage"
)

var ErrNotStarted = errors.New("Server is not listening")

// Server accepts console websocket connections and keeps the set of clients
// whose identity has resolved.
//
// A client is a member of the set from the moment its identity resolves
// until its connection closes. OnConnect and OnDisconnect fire at those
// two points.
type Server struct {
	options Options

	upgrader websocket.Upgrader

	metrics       *metrics
	clientMetrics *client.Metrics

	mu           sync.Mutex
	listener     net.Listener
	httpServer   *http.Server
	cancel       context.CancelFunc
	conns        map[*client.Client]struct{}
	clients      map[*client.Client]struct{}
	onConnect    func(c *client.Client)
	onDisconnect func(c *client.Client)

	log *zap.Logger
}

func NewServer(options Options) (*Server, error) {
	options = options.withDefaults()

	s := &Server{
		options: options,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns:   make(map[*client.Client]struct{}),
		clients: make(map[*client.Client]struct{}),
		log:     options.Log,
	}

	if options.Registerer != nil {
		var err error

		if s.metrics, err = newMetrics(options.Registerer); err != nil {
			return nil, err
		}

		if s.clientMetrics, err = client.NewMetrics(options.Registerer); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// OnConnect sets the hook called for every admitted client. It replaces any
// earlier hook.
func (s *Server) OnConnect(fn func(c *client.Client)) *Server {
	s.mu.Lock()
	s.onConnect = fn
	s.mu.Unlock()
	return s
}

// OnDisconnect sets the hook called when an admitted client's connection
// closes. It replaces any earlier hook.
func (s *Server) OnDisconnect(fn func(c *client.Client)) *Server {
	s.mu.Lock()
	s.onDisconnect = fn
	s.mu.Unlock()
	return s
}

// Start stops any previous listener and listens for websocket connections
// on port. Port 0 picks a free port, see Addr.
func (s *Server) Start(parentCtx context.Context, port int) error {
	if err := s.Stop(); err != nil {
		s.log.Warn("Previous listener did not stop cleanly", zap.Error(err))
	}

	addr := net.JoinHostPort(s.options.Host, strconv.Itoa(port))

	listener, err := reuseport.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("Failed to listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(parentCtx)

	httpServer := &http.Server{
		Handler: s.router(ctx),
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info("Listening for consoles",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.options.Path))

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Websocket server errored", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address being listened on.
func (s *Server) Addr() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil, ErrNotStarted
	}

	return s.listener.Addr(), nil
}

// Stop closes every connection and the listener. Start may be called again
// afterwards.
func (s *Server) Stop() (err error) {
	s.mu.Lock()
	httpServer := s.httpServer
	cancel := s.cancel
	conns := make([]*client.Client, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}

	s.httpServer = nil
	s.listener = nil
	s.cancel = nil
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	s.log.Info("Stopping websocket server", zap.Int("connections", len(conns)))

	if cancel != nil {
		cancel()
	}

	// Closes the listener; hijacked websocket connections are ours to close.
	if cerr := httpServer.Close(); cerr != nil {
		err = multierr.Append(err, cerr)
	}

	for _, c := range conns {
		if cerr := c.Disconnect(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("Failed to close %s: %w", c.ID(), cerr))
		}
	}

	timeout := time.After(s.options.StopTimeout)
	for _, c := range conns {
		select {
		case <-c.Done():
		case <-timeout:
			return multierr.Append(err, errors.New("Timed out waiting for connections to close"))
		}
	}

	s.log.Info("Websocket server stopped")

	return err
}

// Clients returns the admitted clients that satisfy pred, ordered by name.
//
// Each client is tested independently, so the result reflects every client
// at the moment it was tested rather than one consistent snapshot. Clients
// whose test failed are left out and their errors returned alongside.
func (s *Server) Clients(ctx context.Context, pred client.Predicate) ([]*client.Client, error) {
	candidates := s.snapshot()

	satisfied := make([]bool, len(candidates))

	var (
		errMu sync.Mutex
		errs  error
		group errgroup.Group
	)

	group.SetLimit(s.options.FilterConcurrency)

	for i, c := range candidates {
		i, c := i, c

		group.Go(func() error {
			ok, err := c.Test(ctx, pred)
			if err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("Failed to test %s: %w", c.Name(), err))
				errMu.Unlock()
				return nil
			}

			satisfied[i] = ok
			return nil
		})
	}

	_ = group.Wait()

	filtered := make([]*client.Client, 0, len(candidates))
	for i, c := range candidates {
		if satisfied[i] {
			filtered = append(filtered, c)
		}
	}

	return filtered, errs
}

// Count returns the number of admitted clients.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

func (s *Server) snapshot() []*client.Client {
	s.mu.Lock()
	clients := make([]*client.Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name() != clients[j].Name() {
			return clients[i].Name() < clients[j].Name()
		}

		return clients[i].ID().String() < clients[j].ID().String()
	})

	return clients
}

func (s *Server) router(ctx context.Context) *gin.Engine {
	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(s.log.Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
	}))

	r.Use(ginzap.RecoveryWithZap(s.log.Named("http"), true))

	r.GET(s.options.Path, func(gc *gin.Context) {
		s.serveConn(ctx, gc.Writer, gc.Request)
	})

	return r
}

func (s *Server) serveConn(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	s.metrics.accept()

	options := client.Options{
		Builders: s.options.Builders,
		Metrics:  s.clientMetrics,
		OnClose:  s.release,
		Log:      s.log.Named("client"),
	}

	if s.options.CommandRate > 0 {
		options.Limiter = rate.NewLimiter(s.options.CommandRate, s.options.CommandBurst)
	}

	c := client.New(newWebsocketConn(ws, s.options.WriteTimeout), options)

	if !s.track(c) {
		_ = c.Disconnect()
		return
	}

	go s.admit(ctx, c)

	if err := c.Serve(); err != nil {
		s.log.Warn("Connection ended with an error",
			zap.Stringer("client", c.ID()),
			zap.Error(err))
	}
}

// track remembers c so Stop can close it. It refuses once the server has
// been stopped.
func (s *Server) track(c *client.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return false
	}

	s.conns[c] = struct{}{}
	return true
}

// admit resolves c's identity and adds it to the set. A client whose
// identity does not resolve in time is closed without ever being admitted.
func (s *Server) admit(ctx context.Context, c *client.Client) {
	log := s.log.With(zap.Stringer("client", c.ID()), zap.String("remote", c.RemoteAddr()))

	idCtx, cancel := context.WithTimeout(ctx, s.options.IdentifyTimeout)
	name, err := c.Identity(idCtx)
	cancel()

	if err != nil {
		s.metrics.identifyFailed()
		log.Warn("Failed to resolve identity, closing connection", zap.Error(err))

		if err := c.Disconnect(); err != nil {
			log.Warn("Failed to close unidentified connection", zap.Error(err))
		}

		return
	}

	s.mu.Lock()
	select {
	case <-c.Done():
		// Closed while identifying
		s.mu.Unlock()
		return
	default:
	}

	s.clients[c] = struct{}{}
	onConnect := s.onConnect

	// Recorded under mu so release always forgets the session after it was
	// recorded.
	if s.options.Roster != nil {
		err := s.options.Roster.Join(ctx, c.ID(), storage.Session{
			Name:        name,
			Remote:      c.RemoteAddr(),
			ConnectedAt: time.Now(),
		})
		if err != nil {
			log.Warn("Failed to record session", zap.Error(err))
		}
	}
	s.mu.Unlock()

	s.metrics.admit()
	log.Info("Client connected", zap.String("name", name))

	if onConnect != nil {
		onConnect(c)
	}
}

// release is called by a client once its connection has been torn down.
func (s *Server) release(c *client.Client) {
	s.mu.Lock()
	delete(s.conns, c)
	_, member := s.clients[c]
	delete(s.clients, c)
	onDisconnect := s.onDisconnect
	s.mu.Unlock()

	if !member {
		return
	}

	s.metrics.release()
	s.log.Info("Client disconnected",
		zap.Stringer("client", c.ID()),
		zap.String("name", c.Name()))

	if s.options.Roster != nil {
		if err := s.options.Roster.Leave(context.Background(), c.ID()); err != nil {
			s.log.Warn("Failed to forget session", zap.Stringer("client", c.ID()), zap.Error(err))
		}
	}

	if onDisconnect != nil {
		onDisconnect(c)
	}
}
