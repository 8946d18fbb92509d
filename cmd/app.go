package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luma/relay/client"
	"github.com/luma/relay/protocol"
	"github.com/luma/relay/transport"
)

const (
	chatEvent = "PlayerMessage"

	// Bounds each request the app makes on a console's behalf
	appRequestTimeout = 10 * time.Second
)

// app is the example application served by `relay start`: it greets every
// console, listens to the first chat message of players standing at the
// greet selector, and kicks players carrying the ban tag.
type app struct {
	server        *transport.Server
	greetSelector string
	banTag        string
	log           *zap.Logger
}

func (a *app) onConnect(c *client.Client) {
	log := a.log.With(zap.String("name", c.Name()), zap.Stringer("client", c.ID()))

	ctx, cancel := context.WithTimeout(context.Background(), appRequestTimeout)
	defer cancel()

	resp, err := c.RunCommand(ctx, fmt.Sprintf("say %s joined", c.Name()))
	if err != nil {
		log.Warn("Failed to greet", zap.Error(err))
		return
	}

	if err := resp.ErrorOrNil(); err != nil {
		log.Warn("Greeting rejected", zap.Error(err))
	}

	ok, err := c.Test(ctx, client.Selector(a.greetSelector))
	if err != nil {
		log.Warn("Failed to test greet selector", zap.Error(err))
		return
	}

	if !ok {
		return
	}

	err = c.Subscribe(ctx, chatEvent, func(p *protocol.Payload) {
		log.Info("Player message",
			zap.String("sender", p.Get("sender").String()),
			zap.String("message", p.Get("message").String()))

		ctx, cancel := context.WithTimeout(context.Background(), appRequestTimeout)
		defer cancel()

		if err := c.Unsubscribe(ctx, chatEvent); err != nil {
			log.Warn("Failed to unsubscribe from chat", zap.Error(err))
		}
	})
	if err != nil {
		log.Warn("Failed to subscribe to chat", zap.Error(err))
		return
	}

	log.Info("Listening for chat")
}

func (a *app) onDisconnect(c *client.Client) {
	a.log.Info("Player left", zap.String("name", c.Name()), zap.Stringer("client", c.ID()))
}

// sweep disconnects banned players every interval until ctx is done.
func (a *app) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	banned := client.Selector("tag=" + a.banTag)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		a.kick(ctx, banned)
	}
}

func (a *app) kick(ctx context.Context, banned client.Predicate) {
	ctx, cancel := context.WithTimeout(ctx, appRequestTimeout)
	defer cancel()

	clients, err := a.server.Clients(ctx, banned)
	if err != nil {
		a.log.Warn("Some consoles could not be tested for the ban tag", zap.Error(err))
	}

	for _, c := range clients {
		a.log.Info("Disconnecting banned player", zap.String("name", c.Name()))

		if err := c.Disconnect(); err != nil {
			a.log.Warn("Failed to disconnect banned player", zap.String("name", c.Name()), zap.Error(err))
		}
	}
}
