package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luma/relay/internal/env"
	"github.com/luma/relay/storage"
	"github.com/luma/relay/transport"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort string

	// The port to listen for console websockets on
	port int

	// Consoles carrying this tag are disconnected by the sweep
	banTag string

	sweepInterval time.Duration

	// How long shutdown waits for consoles to close
	stopTimeout time.Duration

	// Consoles matching this selector get greeted and subscribed to chat
	greetSelector string
)

func init() {
	flags := StartCmd.PersistentFlags()

	flags.IntVarP(&port, "port", "p", 8089, "The port to listen for console connections on")
	flags.StringVar(&httpPort, "http-port", "8090", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
	flags.StringVar(&banTag, "ban-tag", "ban", "Disconnect consoles whose player carries this tag")
	flags.DurationVar(&sweepInterval, "sweep-interval", time.Second, "How often to look for banned players, 0 disables the sweep")
	flags.DurationVar(&stopTimeout, "stop-timeout", transport.DefaultStopTimeout, "How long shutdown waits for console connections to close")
	flags.StringVar(&greetSelector, "greet-selector", "x=0,y=0,z=0,r=5", "Target selector for players who get subscribed to chat on connect")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start up the relay service",
	Long: `Start up the relay service

Usage
	relay start
	relay start --port 8089 --ban-tag ban

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}

		defer func() {
			_ = log.Sync()
		}()

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		store := storage.NewInmemoryStore()
		roster := storage.NewRoster(store)

		go logRoster(store, log.Named("roster"))

		server, err := transport.NewServer(transport.Options{
			Host:              host,
			IdentifyTimeout:   conf.IdentifyTimeout,
			CommandRate:       rate.Limit(conf.CommandRate),
			CommandBurst:      conf.CommandBurst,
			FilterConcurrency: conf.FilterConcurrency,
			StopTimeout:       stopTimeout,
			Roster:            roster,
			Registerer:        registry,
			Log:               log.Named("transport"),
		})
		if err != nil {
			return err
		}

		app := &app{
			server:        server,
			greetSelector: greetSelector,
			banTag:        banTag,
			log:           log.Named("app"),
		}

		server.
			OnConnect(app.onConnect).
			OnDisconnect(app.onDisconnect)

		router := setupRouter(conf.DebugHTTP, log)

		// Ping test
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

		router.GET("/clients", func(c *gin.Context) {
			doc, err := roster.Snapshot()
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}

			c.Data(http.StatusOK, "application/json", doc)
		})

		s := &http.Server{
			Addr:    net.JoinHostPort(host, httpPort),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		if err := server.Start(ctx, port); err != nil {
			return err
		}

		if sweepInterval > 0 {
			go app.sweep(ctx, sweepInterval)
		}

		log.Info("Listening",
			zap.Any("config", conf),
			zap.String("host", host),
			zap.Int("port", port),
			zap.String("httpPort", httpPort))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(ctx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := server.Stop(); err != nil {
			log.Error("Websocket server forced to shutdown", zap.Error(err))
		}

		if err := store.Close(); err != nil {
			log.Error("Failed to close the roster store", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - Logs to stdout.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func logRoster(store storage.Store, log *zap.Logger) {
	for update := range store.ListenToUpdates() {
		if update.Value == nil {
			log.Debug("Session ended", zap.ByteString("client", update.Key))
			continue
		}

		log.Debug("Session started",
			zap.ByteString("client", update.Key),
			zap.ByteString("session", update.Value))
	}
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
