package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/cognito/pkg/domain"
)

// End is the terminal pseudo-node. Reaching it terminates the walk.
const End = "__end__"

// Node is one stage of the workflow. It receives a private copy of the walk and returns
// the fields it wants changed; the engine merges the delta before the next node runs.
type Node interface {
	Name() string
	Run(ctx context.Context, state *domain.State) (domain.Delta, error)
}

// CriticalAction is implemented by nodes that may perform an irreversible action.
// The engine consults it before running the node and suspends the walk when the
// proposed tool is in the critical set and has not been approved.
type CriticalAction interface {
	ProposedAction(state *domain.State) *domain.ToolCall
}

type funcNode struct {
	name string
	fn   func(context.Context, *domain.State) (domain.Delta, error)
}

func (n funcNode) Name() string { return n.name }

func (n funcNode) Run(ctx context.Context, s *domain.State) (domain.Delta, error) {
	return n.fn(ctx, s)
}

// Func adapts a function to Node.
func Func(name string, fn func(context.Context, *domain.State) (domain.Delta, error)) Node {
	return funcNode{name: name, fn: fn}
}

// Condition maps a walk to a route label.
type Condition func(state *domain.State) string

// Route is one outgoing branch of a conditional edge.
type Route struct {
	To string
	// Retry marks a re-execution of a specialist. Following it consumes one iteration,
	// and at the ceiling the engine diverts to the exhausted node instead.
	Retry bool
}

type conditionalEdge struct {
	decide   Condition
	routes   map[string]Route
	fallback string
}

// Graph is the static topology of the workflow: nodes, static edges and conditional
// edges with a fallback. It is immutable once handed to NewEngine.
type Graph struct {
	nodes       map[string]Node
	order       []string
	edges       map[string]string
	conditional map[string]conditionalEdge

	entry     string
	exhausted string
	replan    string

	errs []error
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:       make(map[string]Node),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// AddNode registers n. Duplicate names are reported by Validate.
func (g *Graph) AddNode(n Node) *Graph {
	if _, dup := g.nodes[n.Name()]; dup {
		g.errs = append(g.errs, fmt.Errorf("%w: duplicate node %q", domain.ErrGraphMisconfigured, n.Name()))
		return g
	}
	g.nodes[n.Name()] = n
	g.order = append(g.order, n.Name())
	return g
}

// AddEdge adds an unconditional edge.
func (g *Graph) AddEdge(from, to string) *Graph {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("%w: node %q already has an outgoing edge", domain.ErrGraphMisconfigured, from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdge routes from by the label decide returns. Labels missing from
// routes go to fallback.
func (g *Graph) AddConditionalEdge(from string, decide Condition, routes map[string]Route, fallback string) *Graph {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("%w: node %q already has an outgoing edge", domain.ErrGraphMisconfigured, from))
		return g
	}
	g.conditional[from] = conditionalEdge{decide: decide, routes: routes, fallback: fallback}
	return g
}

// SetEntry sets the first node of every walk.
func (g *Graph) SetEntry(id string) *Graph { g.entry = id; return g }

// SetExhausted sets where retry edges go once the iteration ceiling is reached.
func (g *Graph) SetExhausted(id string) *Graph { g.exhausted = id; return g }

// SetReplan sets where a rejected critical action re-enters the walk.
// Without it, rejections go to the exhausted node.
func (g *Graph) SetReplan(id string) *Graph { g.replan = id; return g }

func (g *Graph) hasOutgoing(from string) bool {
	_, static := g.edges[from]
	_, cond := g.conditional[from]
	return static || cond
}

func (g *Graph) exists(id string) bool {
	if id == End {
		return true
	}
	_, ok := g.nodes[id]
	return ok
}

// Validate checks the topology. Every problem is reported, each wrapping
// domain.ErrGraphMisconfigured.
func (g *Graph) Validate() error {
	errs := append([]error(nil), g.errs...)
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrGraphMisconfigured}, args...)...))
	}

	if g.entry == "" || !g.exists(g.entry) || g.entry == End {
		bad("entry node %q is not registered", g.entry)
	}
	if g.exhausted == "" || !g.exists(g.exhausted) || g.exhausted == End {
		bad("exhausted node %q is not registered", g.exhausted)
	}
	if g.replan != "" && (!g.exists(g.replan) || g.replan == End) {
		bad("replan node %q is not registered", g.replan)
	}

	for _, id := range g.order {
		if !g.hasOutgoing(id) {
			bad("node %q has no outgoing edge", id)
		}
	}
	for from, to := range g.edges {
		if !g.exists(from) || from == End {
			bad("edge from unknown node %q", from)
		}
		if !g.exists(to) {
			bad("edge %q -> unknown node %q", from, to)
		}
	}
	for from, c := range g.conditional {
		if !g.exists(from) || from == End {
			bad("conditional edge from unknown node %q", from)
		}
		if c.decide == nil {
			bad("conditional edge from %q has no condition", from)
		}
		if !g.exists(c.fallback) {
			bad("conditional edge from %q falls back to unknown node %q", from, c.fallback)
		}
		for label, r := range c.routes {
			if !g.exists(r.To) {
				bad("route %q from %q targets unknown node %q", label, from, r.To)
			}
		}
	}
	return errors.Join(errs...)
}

// Nodes returns node names in registration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Entry returns the entry node.
func (g *Graph) Entry() string { return g.entry }

// Exhausted returns the node retry edges divert to at the iteration ceiling.
func (g *Graph) Exhausted() string { return g.exhausted }

// Gated reports whether id can propose critical actions and therefore suspend a walk.
func (g *Graph) Gated(id string) bool {
	_, ok := g.nodes[id].(CriticalAction)
	return ok
}

// EdgeInfo describes one edge for introspection and rendering.
type EdgeInfo struct {
	From     string
	To       string
	Label    string
	Retry    bool
	Fallback bool
}

// Edges lists every edge, conditional routes included, in node registration order.
func (g *Graph) Edges() []EdgeInfo {
	var out []EdgeInfo
	for _, from := range g.order {
		if to, ok := g.edges[from]; ok {
			out = append(out, EdgeInfo{From: from, To: to})
			continue
		}
		c, ok := g.conditional[from]
		if !ok {
			continue
		}
		for _, label := range sortedKeys(c.routes) {
			r := c.routes[label]
			out = append(out, EdgeInfo{From: from, To: r.To, Label: label, Retry: r.Retry})
		}
		out = append(out, EdgeInfo{From: from, To: c.fallback, Label: "fallback", Fallback: true})
	}
	return out
}

type resolution struct {
	to        string
	label     string
	retry     bool
	fallback  bool
	exhausted bool
}

func (g *Graph) resolve(from string, s *domain.State) (resolution, error) {
	if to, ok := g.edges[from]; ok {
		return resolution{to: to}, nil
	}
	c, ok := g.conditional[from]
	if !ok {
		return resolution{}, fmt.Errorf("%w: node %q has no outgoing edge", domain.ErrGraphMisconfigured, from)
	}
	label := c.decide(s)
	r, ok := c.routes[label]
	if !ok {
		return resolution{to: c.fallback, label: label, fallback: true}, nil
	}
	return resolution{to: r.To, label: label, retry: r.Retry}, nil
}

func sortedKeys(m map[string]Route) []string {
	return slices.Sorted(maps.Keys(m))
}
