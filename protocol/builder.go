package protocol

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownBuilder = errors.New("No payload builder is registered under that name")
	ErrEmptyPayload   = errors.New("Payload builder did not produce a payload")
)

// Builder constructs a payload from loosely typed arguments. The registry it
// was invoked through is passed first so builders can compose other builders
// by name.
//
// Builders are probed with no arguments when registered, so they must fall
// back to defaults for missing arguments.
type Builder func(r *Registry, args ...interface{}) *Payload

type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Builders is the default registry, preloaded with the base, event and
// command builders.
var Builders = NewDefaultRegistry()

// NewDefaultRegistry returns a registry holding the base, event and command
// builders.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BuildBase, buildBase)
	r.Register(BuildEvent, buildEvent)
	r.Register(BuildCommand, buildCommand)
	return r
}

// Register stores b under name, replacing any earlier builder of that name.
//
// A nil builder, or one that does not yield a payload when probed without
// arguments, is ignored and Register returns false.
func (r *Registry) Register(name string, b Builder) bool {
	if b == nil {
		return false
	}

	if probe(r, b) == nil {
		return false
	}

	r.mu.Lock()
	r.builders[name] = b
	r.mu.Unlock()

	return true
}

// Build invokes the builder registered under name.
func (r *Registry) Build(name string, args ...interface{}) (*Payload, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("Failed to build '%s': %w", name, ErrUnknownBuilder)
	}

	p := b(r, args...)
	if p == nil {
		return nil, fmt.Errorf("Failed to build '%s': %w", name, ErrEmptyPayload)
	}

	return p, nil
}

// Names returns the registered builder names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Command builds a command request for commandLine.
func (r *Registry) Command(commandLine string) (*Payload, error) {
	return r.Build(BuildCommand, commandLine)
}

// Event builds an event subscribe request, or an unsubscribe request when
// subscribing is false.
func (r *Registry) Event(eventName string, subscribing bool) (*Payload, error) {
	return r.Build(BuildEvent, eventName, subscribing)
}

func probe(r *Registry, b Builder) (p *Payload) {
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()

	return b(r)
}

func buildBase(_ *Registry, args ...interface{}) *Payload {
	purpose := PurposeCommandRequest

	switch v := arg(args, 0).(type) {
	case Purpose:
		if v != "" {
			purpose = v
		}
	case string:
		if v != "" {
			purpose = Purpose(v)
		}
	}

	return &Payload{
		Header: Header{
			Version:        Version,
			RequestID:      uuid.New(),
			MessageType:    TypeCommandRequest,
			MessagePurpose: purpose,
		},
		Body: []byte("{}"),
	}
}

func buildEvent(r *Registry, args ...interface{}) *Payload {
	eventName, _ := arg(args, 0).(string)

	subscribing := true
	if v, ok := arg(args, 1).(bool); ok {
		subscribing = v
	}

	purpose := PurposeSubscribe
	if !subscribing {
		purpose = PurposeUnsubscribe
	}

	p, err := r.Build(BuildBase, purpose)
	if err != nil {
		return nil
	}

	if err := p.Set("eventName", eventName); err != nil {
		return nil
	}

	return p
}

func buildCommand(r *Registry, args ...interface{}) *Payload {
	commandLine, _ := arg(args, 0).(string)

	p, err := r.Build(BuildBase)
	if err != nil {
		return nil
	}

	fields := []struct {
		path  string
		value interface{}
	}{
		{"version", Version},
		{"origin.type", OriginPlayer},
		{"overworld", DefaultOverworld},
		{"commandLine", commandLine},
	}

	for _, f := range fields {
		if err := p.Set(f.path, f.value); err != nil {
			return nil
		}
	}

	return p
}

func arg(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}

	return nil
}
