// Package graph runs one turn through the orchestration graph:
// ROUTER, then exactly one STRATEGY, then END.
package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai/agent"
)

// State is a node of the orchestration graph.
type State int

const (
	StateRouter State = iota
	StateStrategy
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateRouter:
		return "ROUTER"
	case StateStrategy:
		return "STRATEGY"
	default:
		return "END"
	}
}

// Router classifies a turn.
type Router interface {
	Route(ctx context.Context, rc *agent.RunContext, pinned string) *agent.ChatRouteResult
}

// Strategies resolves a strategy by type.
type Strategies interface {
	Get(t agent.AgentType) (agent.Strategy, error)
}

// Outcome is the result of one run.
type Outcome struct {
	Route  *agent.ChatRouteResult
	Result *agent.Result
}

// Graph is the orchestration graph. It holds no per-turn state and is safe
// for concurrent use.
type Graph struct {
	router     Router
	strategies Strategies
}

// New creates a graph.
func New(router Router, strategies Strategies) *Graph {
	return &Graph{router: router, strategies: strategies}
}

// Run executes one turn, delivering events to emit in order.
// pinned, when it names a strategy, bypasses classification.
func (g *Graph) Run(ctx context.Context, rc *agent.RunContext, pinned string, emit agent.EventHandler) (*Outcome, error) {
	out := &Outcome{}
	state := StateRouter
	start := time.Now()

	for state != StateEnd {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		switch state {
		case StateRouter:
			if err := emit(agent.Event{Node: agent.NodeRouter, Kind: agent.EventChainStart, Name: agent.NodeRouter}); err != nil {
				return out, err
			}
			out.Route = g.router.Route(ctx, rc, pinned)
			if err := emit(agent.Event{Node: agent.NodeRouter, Kind: agent.EventChainEnd, Name: agent.NodeRouter, Output: out.Route.Route}); err != nil {
				return out, err
			}
			state = StateStrategy

		case StateStrategy:
			strategy, err := g.strategies.Get(out.Route.Route)
			if err != nil {
				return out, errors.Wrap(err, "failed to resolve strategy")
			}
			node := agent.AgentNode(strategy.Name())
			if err := emit(agent.Event{Node: node, Kind: agent.EventChainStart, Name: node}); err != nil {
				return out, err
			}
			result, err := strategy.Run(ctx, rc, emit)
			if err != nil {
				return out, err
			}
			out.Result = result
			if err := emit(agent.Event{Node: node, Kind: agent.EventChainEnd, Name: node, Output: result}); err != nil {
				return out, err
			}
			state = StateEnd
		}
	}

	slog.Debug("graph run finished",
		"route", out.Route.Route,
		"method", out.Route.Method,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
