package models

import (
	// Go Internal Packages
	"sort"
)

// State is one value of an entity's finite state vocabulary.
type State string

// Machine is the directed transition graph of one entity family.
// States without outgoing edges are terminal.
type Machine struct {
	name       string
	edges      map[State]map[State]struct{}
	states     map[State]struct{}
	errorState State
}

// NewMachine builds a graph from an adjacency list. errorState is the state a
// dead-lettered entity is moved to, empty when the family has none.
func NewMachine(name string, transitions map[State][]State, errorState State) *Machine {
	m := &Machine{
		name:       name,
		edges:      make(map[State]map[State]struct{}, len(transitions)),
		states:     make(map[State]struct{}),
		errorState: errorState,
	}
	for from, tos := range transitions {
		m.states[from] = struct{}{}
		if m.edges[from] == nil {
			m.edges[from] = make(map[State]struct{}, len(tos))
		}
		for _, to := range tos {
			m.edges[from][to] = struct{}{}
			m.states[to] = struct{}{}
		}
	}
	return m
}

func (m *Machine) Name() string { return m.name }

// CanTransition reports whether to is a direct successor of from.
func (m *Machine) CanTransition(from, to State) bool {
	_, ok := m.edges[from][to]
	return ok
}

func (m *Machine) IsTerminal(s State) bool {
	_, known := m.states[s]
	return known && len(m.edges[s]) == 0
}

func (m *Machine) Knows(s State) bool {
	_, ok := m.states[s]
	return ok
}

// ErrorState returns the family's dead-letter state, if any.
func (m *Machine) ErrorState() (State, bool) {
	return m.errorState, m.errorState != ""
}

// States lists every state of the graph in lexical order.
func (m *Machine) States() []State {
	out := make([]State, 0, len(m.states))
	for s := range m.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
