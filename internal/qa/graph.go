package qa

import (
	"context"
	"fmt"
	"time"

	"github.com/mwiater/docqa/internal/providers"
)

// Node names a stage in a Graph.
type Node string

const (
	NodeRetrieve Node = "retrieve"
	NodeGenerate Node = "generate"
	NodeEvaluate Node = "evaluate"
	NodeLocalize Node = "localize"
	// End terminates a run.
	End Node = "__end__"
)

// Stage is one step of the pipeline. It receives the accumulated state and returns
// only what it produced.
type Stage func(ctx context.Context, s State) (Update, error)

// Router picks the verdict used to select a conditional edge.
type Router func(s State) Verdict

// Observer is told about every stage execution.
type Observer func(node Node, elapsed time.Duration, err error)

type branch struct {
	route   Router
	targets map[Verdict]Node
}

// Graph is a directed, acyclic set of stages. Every node has exactly one outgoing
// edge: a plain edge or a conditional edge keyed by Verdict.
type Graph struct {
	entry    Node
	stages   map[Node]Stage
	edges    map[Node]Node
	branches map[Node]branch
	errs     []error
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		stages:   map[Node]Stage{},
		edges:    map[Node]Node{},
		branches: map[Node]branch{},
	}
}

// AddNode registers a stage under name.
func (g *Graph) AddNode(name Node, stage Stage) *Graph {
	if name == End || name == "" {
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
		return g
	}
	if _, exists := g.stages[name]; exists {
		g.errs = append(g.errs, fmt.Errorf("node %q already registered", name))
		return g
	}
	g.stages[name] = stage
	return g
}

// AddSequence registers nodes and links them in order.
func (g *Graph) AddSequence(names []Node, stages []Stage) *Graph {
	if len(names) != len(stages) {
		g.errs = append(g.errs, fmt.Errorf("sequence has %d names and %d stages", len(names), len(stages)))
		return g
	}
	for i, name := range names {
		g.AddNode(name, stages[i])
		if i > 0 {
			g.AddEdge(names[i-1], name)
		}
	}
	return g
}

// AddEdge links from to to unconditionally.
func (g *Graph) AddEdge(from, to Node) *Graph {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdge links from to the target selected by route's verdict.
func (g *Graph) AddConditionalEdge(from Node, route Router, targets map[Verdict]Node) *Graph {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return g
	}
	g.branches[from] = branch{route: route, targets: targets}
	return g
}

// SetEntry sets the first node of every run.
func (g *Graph) SetEntry(name Node) *Graph {
	g.entry = name
	return g
}

func (g *Graph) hasOutgoing(n Node) bool {
	_, plain := g.edges[n]
	_, cond := g.branches[n]
	return plain || cond
}

func (g *Graph) successors(n Node) []Node {
	if to, ok := g.edges[n]; ok {
		return []Node{to}
	}
	b := g.branches[n]
	out := make([]Node, 0, len(b.targets))
	for _, to := range b.targets {
		out = append(out, to)
	}
	return out
}

// Compile validates the graph and freezes it for execution.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if len(g.errs) > 0 {
		return nil, g.errs[0]
	}
	if _, ok := g.stages[g.entry]; !ok {
		return nil, fmt.Errorf("entry node %q is not registered", g.entry)
	}
	for name := range g.stages {
		if !g.hasOutgoing(name) {
			return nil, fmt.Errorf("node %q has no outgoing edge", name)
		}
		for _, to := range g.successors(name) {
			if _, ok := g.stages[to]; !ok && to != End {
				return nil, fmt.Errorf("edge %q -> %q targets an unknown node", name, to)
			}
		}
	}
	for from := range g.edges {
		if _, ok := g.stages[from]; !ok {
			return nil, fmt.Errorf("edge starts at unknown node %q", from)
		}
	}
	for from := range g.branches {
		if _, ok := g.stages[from]; !ok {
			return nil, fmt.Errorf("conditional edge starts at unknown node %q", from)
		}
	}
	if cycle := g.findCycle(); cycle != "" {
		return nil, fmt.Errorf("graph contains a cycle through %q", cycle)
	}

	c := &CompiledGraph{
		entry:    g.entry,
		stages:   make(map[Node]Stage, len(g.stages)),
		edges:    make(map[Node]Node, len(g.edges)),
		branches: make(map[Node]branch, len(g.branches)),
	}
	for k, v := range g.stages {
		c.stages[k] = v
	}
	for k, v := range g.edges {
		c.edges[k] = v
	}
	for k, v := range g.branches {
		c.branches[k] = v
	}
	return c, nil
}

func (g *Graph) findCycle() Node {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[Node]int{}
	var visit func(n Node) Node
	visit = func(n Node) Node {
		if n == End {
			return ""
		}
		switch state[n] {
		case visiting:
			return n
		case done:
			return ""
		}
		state[n] = visiting
		for _, next := range g.successors(n) {
			if c := visit(next); c != "" {
				return c
			}
		}
		state[n] = done
		return ""
	}
	for name := range g.stages {
		if c := visit(name); c != "" {
			return c
		}
	}
	return ""
}

// CompiledGraph is an immutable, validated Graph. It is safe for concurrent runs.
type CompiledGraph struct {
	entry    Node
	stages   map[Node]Stage
	edges    map[Node]Node
	branches map[Node]branch
}

// Run executes stages from the entry node until End, merging each stage's update
// into the state. The first stage error stops the run; the state accumulated so
// far is returned with it.
func (c *CompiledGraph) Run(ctx context.Context, s State, observe Observer) (State, error) {
	node := c.entry
	for node != End {
		if err := ctx.Err(); err != nil {
			return s, fmt.Errorf("%s stage: %w", node, err)
		}
		stage := c.stages[node]
		start := time.Now()
		update, err := stage(providers.WithStage(ctx, string(node)), s)
		if observe != nil {
			observe(node, time.Since(start), err)
		}
		if err != nil {
			return s, fmt.Errorf("%s stage: %w", node, err)
		}
		s.apply(update)

		next, err := c.next(node, s)
		if err != nil {
			return s, err
		}
		node = next
	}
	return s, nil
}

func (c *CompiledGraph) next(from Node, s State) (Node, error) {
	if to, ok := c.edges[from]; ok {
		return to, nil
	}
	b := c.branches[from]
	verdict := b.route(s)
	to, ok := b.targets[verdict]
	if !ok {
		return "", fmt.Errorf("node %q has no route for verdict %s", from, verdict)
	}
	return to, nil
}
