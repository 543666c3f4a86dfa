package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ToolFactory creates a tool instance bound to a request's dependencies.
type ToolFactory func(deps Deps) (Tool, error)

// ToolMeta describes a registered tool for discovery and documentation.
type ToolMeta struct {
	Name        string
	Description string
	InputSchema InputSchema
}

// toolDescriptor pairs a factory with its metadata.
type toolDescriptor struct {
	meta    ToolMeta
	factory ToolFactory
}

// Registry is the process-scoped tool catalog. It is owned by the bot
// service, filled during startup wiring, and sealed when the first
// Provider is created. Registration after sealing is a startup bug and
// panics.
type Registry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]toolDescriptor
	order  []string
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]toolDescriptor)}
}

// Register adds a tool factory under its metadata name.
func (r *Registry) Register(factory ToolFactory, meta ToolMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		panic(fmt.Sprintf("tool registry sealed, cannot register %q", meta.Name))
	}
	if meta.Name == "" {
		panic("tool registration needs a name")
	}
	if _, exists := r.tools[meta.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", meta.Name))
	}

	r.tools[meta.Name] = toolDescriptor{meta: meta, factory: factory}
	r.order = append(r.order, meta.Name)
}

// Seal prevents further registrations. Called automatically by Provider.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// ListTools returns metadata for every registered tool in registration
// order.
func (r *Registry) ListTools() []ToolMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ToolMeta, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name].meta)
	}
	return result
}

// Provider hands out tool instances for one caller's allow-set, creating
// them lazily against the request dependencies and caching per provider.
type Provider struct {
	registry *Registry
	deps     Deps
	mu       sync.Mutex
	tools    map[string]Tool
	allowSet map[string]struct{}
}

// Provider derives a provider restricted to the allowed tool names.
// Creating a provider seals the registry.
func (r *Registry) Provider(deps Deps, allowed []string) *Provider {
	r.Seal()

	allowSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowSet[name] = struct{}{}
	}

	return &Provider{
		registry: r,
		deps:     deps,
		tools:    make(map[string]Tool),
		allowSet: allowSet,
	}
}

// Get retrieves a tool instance, creating it lazily. Unknown and
// disallowed names both return an error; dispatch stays total and the
// caller turns the error into a failed tool result.
func (p *Provider) Get(name string) (Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allowSet[name]; !ok {
		return nil, fmt.Errorf("tool %q not available", name)
	}

	if tool, ok := p.tools[name]; ok {
		return tool, nil
	}

	p.registry.mu.RLock()
	desc, exists := p.registry.tools[name]
	p.registry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("tool %q not registered", name)
	}

	tool, err := desc.factory(p.deps)
	if err != nil {
		return nil, fmt.Errorf("creating tool %q: %w", name, err)
	}

	p.tools[name] = tool
	return tool, nil
}

// Names returns the allowed tool names, sorted.
func (p *Provider) Names() []string {
	names := make([]string, 0, len(p.allowSet))
	for name := range p.allowSet {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the allowed tools' definitions in registration
// order, for the model's tool catalog.
func (p *Provider) Definitions() []ToolDefinition {
	p.registry.mu.RLock()
	defer p.registry.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(p.allowSet))
	for _, name := range p.registry.order {
		if _, ok := p.allowSet[name]; !ok {
			continue
		}
		desc := p.registry.tools[name]
		defs = append(defs, ToolDefinition{
			Name:        desc.meta.Name,
			Description: desc.meta.Description,
			InputSchema: desc.meta.InputSchema,
		})
	}
	return defs
}

// PromptDocumentation renders markdown documentation for the allowed
// tools, for inclusion in system instructions.
func (p *Provider) PromptDocumentation() string {
	p.registry.mu.RLock()
	order := append([]string(nil), p.registry.order...)
	p.registry.mu.RUnlock()

	var doc strings.Builder
	for _, name := range order {
		if _, ok := p.allowSet[name]; !ok {
			continue
		}
		tool, err := p.Get(name)
		if err != nil {
			continue
		}
		if doc.Len() > 0 {
			doc.WriteString("\n")
		}
		doc.WriteString(tool.PromptDocumentation())
	}
	if doc.Len() == 0 {
		return "No tools available"
	}
	return doc.String()
}
