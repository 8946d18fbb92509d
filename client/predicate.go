package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luma/relay/protocol"
)

var ErrInvalidPredicate = errors.New("Predicate is neither a selector nor a function")

// PredicateFunc is evaluated against a client without a network round trip.
type PredicateFunc func(ctx context.Context, c *Client) (bool, error)

type predicateKind uint8

const (
	predicateSelector predicateKind = iota + 1
	predicateFunc
)

// Predicate is either a target selector, tested remotely with a probe
// command, or a local function.
type Predicate struct {
	kind     predicateKind
	selector string
	fn       PredicateFunc
}

// Selector builds a predicate from a target selector body such as
// "tag=ban" or "[x=0,y=0,z=0,r=5]". The surrounding brackets are optional.
func Selector(selector string) Predicate {
	return Predicate{kind: predicateSelector, selector: normalizeSelector(selector)}
}

func Func(fn PredicateFunc) Predicate {
	return Predicate{kind: predicateFunc, fn: fn}
}

// All matches every client.
func All() Predicate {
	return Func(func(context.Context, *Client) (bool, error) {
		return true, nil
	})
}

func (p Predicate) String() string {
	switch p.kind {
	case predicateSelector:
		return "selector[" + p.selector + "]"
	case predicateFunc:
		return "func"
	default:
		return "invalid"
	}
}

// probeCommand returns the command line that tests selector against the
// client's own player.
func probeCommand(selector string) string {
	if selector == "" {
		return "testfor @s"
	}

	return fmt.Sprintf("testfor @s[%s]", selector)
}

func normalizeSelector(selector string) string {
	selector = strings.TrimSpace(selector)
	selector = strings.TrimPrefix(selector, "[")
	selector = strings.TrimSuffix(selector, "]")
	return strings.TrimSpace(selector)
}

// matched reports whether a testfor response found at least one target.
func matched(resp *protocol.Payload) bool {
	if resp.ErrorOrNil() != nil {
		return false
	}

	return resp.Get("victim.#").Int() > 0
}
