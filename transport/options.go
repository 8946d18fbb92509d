package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luma/relay/protocol"
	"github.com/luma/relay/storage"
)

const (
	DefaultPath              = "/"
	DefaultIdentifyTimeout   = 10 * time.Second
	DefaultFilterConcurrency = 16
	DefaultWriteTimeout      = 10 * time.Second
	DefaultStopTimeout       = 5 * time.Second
)

type Options struct {
	// Host to listen on
	Host string

	// Path the websocket upgrade is served on, defaults to "/"
	Path string

	// IdentifyTimeout bounds how long a new connection may take to resolve
	// its identity before it is closed without being admitted.
	IdentifyTimeout time.Duration

	// CommandRate throttles outbound payloads per connection. Zero disables
	// throttling.
	CommandRate  rate.Limit
	CommandBurst int

	// FilterConcurrency bounds how many predicates Clients evaluates at once
	FilterConcurrency int

	WriteTimeout time.Duration

	// StopTimeout bounds how long Stop waits for connections to close
	StopTimeout time.Duration

	// Roster, when set, records every admitted client.
	Roster *storage.Roster

	// Registerer, when set, receives the server and client metrics.
	Registerer prometheus.Registerer

	// Builders defaults to protocol.Builders
	Builders *protocol.Registry

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = DefaultPath
	}

	if o.IdentifyTimeout <= 0 {
		o.IdentifyTimeout = DefaultIdentifyTimeout
	}

	if o.FilterConcurrency < 1 {
		o.FilterConcurrency = DefaultFilterConcurrency
	}

	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}

	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}

	if o.CommandRate > 0 && o.CommandBurst < 1 {
		o.CommandBurst = 1
	}

	if o.Builders == nil {
		o.Builders = protocol.Builders
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}
