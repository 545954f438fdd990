package modules

import (
	"sync"

	"github.com/sphildreth/blackboard/internal/nodes"
)

// Module is anything that can be bound to a view by name.
type Module interface {
	Name() string
	Description() string
}

// CommandHandler is implemented by modules that accept line commands from
// the view they are bound to. Returning handled=false passes the input back
// to the view's own action table.
type CommandHandler interface {
	HandleCommand(node *nodes.Node, cmd, args string) (handled bool, err error)
}

// Registry maps module names to instances. Registration happens at boot;
// lookups happen on every bound-view input.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Name()] = m
}

func (r *Registry) Get(name string) Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[name]
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}
