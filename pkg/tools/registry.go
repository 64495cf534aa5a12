package tools

import (
	"fmt"
	"sync"
)

// Factory creates a tool instance.
type Factory func() (Tool, error)

// Meta contains metadata about a tool for documentation and discovery.
type Meta struct {
	InputSchema InputSchema
	Name        string
	Description string
}

type descriptor struct {
	factory Factory
	meta    Meta
}

// Registry holds tool factories. Instances are constructed explicitly and
// injected rather than shared through package globals, so tests can build
// isolated registries per case.
type Registry struct {
	tools  map[string]descriptor
	mu     sync.RWMutex
	sealed bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]descriptor)}
}

// Register adds a tool factory. Panics if called after the registry is sealed.
func (r *Registry) Register(name string, factory Factory, meta *Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}
	r.tools[name] = descriptor{factory: factory, meta: *meta}
}

// Seal prevents further tool registrations.
// Called automatically when the first Provider is created.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// List returns metadata for all registered tools.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Meta, 0, len(r.tools))
	for _, desc := range r.tools {
		result = append(result, desc.meta)
	}
	return result
}

// Provider creates and caches tool instances for one allowed-tool set.
type Provider struct {
	registry *Registry
	tools    map[string]Tool
	allowSet map[string]struct{}
	mu       sync.Mutex
}

// NewProvider creates a Provider limited to the allowed tools.
// Seals the registry on first use.
func (r *Registry) NewProvider(allowedTools []string) *Provider {
	r.Seal()

	allowSet := make(map[string]struct{}, len(allowedTools))
	for _, name := range allowedTools {
		allowSet[name] = struct{}{}
	}

	return &Provider{
		registry: r,
		tools:    make(map[string]Tool),
		allowSet: allowSet,
	}
}

// Get retrieves a tool instance, creating it lazily if needed.
func (p *Provider) Get(name string) (Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allowSet[name]; !ok {
		return nil, fmt.Errorf("tool '%s' not allowed in this context", name)
	}

	if tool, ok := p.tools[name]; ok {
		return tool, nil
	}

	p.registry.mu.RLock()
	desc, exists := p.registry.tools[name]
	p.registry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}

	tool, err := desc.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create tool '%s': %w", name, err)
	}

	p.tools[name] = tool
	return tool, nil
}

// List returns metadata for all allowed tools.
func (p *Provider) List() []Meta {
	p.registry.mu.RLock()
	defer p.registry.mu.RUnlock()

	result := make([]Meta, 0, len(p.allowSet))
	for name := range p.allowSet {
		if desc, ok := p.registry.tools[name]; ok {
			result = append(result, desc.meta)
		}
	}
	return result
}

// Definitions returns provider-facing tool definitions for the allowed set.
func (p *Provider) Definitions() []Definition {
	metas := p.List()
	defs := make([]Definition, len(metas))
	for i := range metas {
		defs[i] = Definition{
			Name:        metas[i].Name,
			Description: metas[i].Description,
			InputSchema: metas[i].InputSchema,
		}
	}
	return defs
}
