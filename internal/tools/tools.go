// Package tools defines the tool registry the agent dispatches to.
package tools

import (
	"context"
	"fmt"
)

// Tool is a named capability that turns one string input into one
// string result. Invoke reports its own failures as descriptive text;
// it never returns an error.
type Tool struct {
	Name        string
	Description string
	Invoke      func(ctx context.Context, input string) string
}

// Descriptor is the part of a tool shown to the model.
type Descriptor struct {
	Name        string
	Description string
}

// Registry holds the fixed set of tools for the life of the process.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry builds a registry from tools, keeping their order for
// Describe. Names must be non-empty and unique and every tool needs an
// Invoke function.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(tools)),
		tools: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool with description %q has no name", t.Description)
		}
		if t.Invoke == nil {
			return nil, fmt.Errorf("tool %q has no invoke function", t.Name)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name)
		}
		r.order = append(r.order, t.Name)
		r.tools[t.Name] = t
	}
	return r, nil
}

// Describe lists the registered tools in construction order.
func (r *Registry) Describe() []Descriptor {
	out := make([]Descriptor, len(r.order))
	for i, name := range r.order {
		t := r.tools[name]
		out[i] = Descriptor{Name: t.Name, Description: t.Description}
	}
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in construction order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Invoke runs the named tool and returns its result unchanged.
func (r *Registry) Invoke(ctx context.Context, name, input string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", &ErrUnknownTool{ToolName: name}
	}
	return t.Invoke(ctx, input), nil
}
