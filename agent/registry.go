package agent

import (
	"fmt"
	"sort"

	"github.com/angiesanchezm/genai-music/core"
)

// Registry holds the closed set of automated agents by identity.
// Populate it at wiring time; lookups are read-only afterwards.
type Registry struct {
	agents map[core.AgentID]core.Agent
}

// NewRegistry constructs a registry from the given agents.
func NewRegistry(agents ...core.Agent) (*Registry, error) {
	r := &Registry{agents: map[core.AgentID]core.Agent{}}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an agent, rejecting duplicates and non-automated identities.
func (r *Registry) Register(a core.Agent) error {
	id := a.ID()
	if !id.Automated() {
		return fmt.Errorf("registry: %q is not an automated agent", id)
	}
	if _, exists := r.agents[id]; exists {
		return fmt.Errorf("registry: agent %q already registered", id)
	}
	r.agents[id] = a
	return nil
}

// Get returns the agent for the given identity.
func (r *Registry) Get(id core.AgentID) (core.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("registry: no agent registered for %q", id)
	}
	return a, nil
}

// IDs returns the registered identities in stable order.
func (r *Registry) IDs() []core.AgentID {
	ids := make([]core.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
