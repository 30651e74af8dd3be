// Package tools provides the registry of callable tools exposed to the
// model. Each tool declares a JSON Schema for its arguments; the registry
// validates arguments before dispatch so handlers never see malformed input.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
)

// Handler executes a tool call. Arguments are schema-validated JSON.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Descriptor describes one registered tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	// SourceLabel is the human-readable data source this tool draws on,
	// reported to callers as answer provenance.
	SourceLabel string `json:"source_label"`
}

// registered pairs a descriptor with its compiled schema and handler.
type registered struct {
	desc    Descriptor
	schema  *jsonschema.Schema
	handler Handler
}

// Registry holds the callable tools. Safe for concurrent use; registration
// normally happens once at startup.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*registered
	logger log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*registered),
		logger: logger,
	}
}

// Register adds a tool. The descriptor's Parameters must be a valid JSON
// Schema object; registration fails otherwise.
func (r *Registry) Register(desc Descriptor, handler Handler) error {
	if desc.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler is nil", desc.Name)
	}

	raw, err := json.Marshal(desc.Parameters)
	if err != nil {
		return fmt.Errorf("tool %s: marshaling schema: %w", desc.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("tool %s: adding schema resource: %w", desc.Name, err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("tool %s: compiling schema: %w", desc.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %s: already registered", desc.Name)
	}
	r.tools[desc.Name] = &registered{desc: desc, schema: schema, handler: handler}
	return nil
}

// Invoke validates args against the tool's schema and runs its handler.
// Empty args are treated as an empty object so tools without required
// parameters accept bare calls.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", newToolError(KindNotFound, name, fmt.Errorf("no such tool"))
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}

	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return "", newToolError(KindInvalidArguments, name, fmt.Errorf("arguments are not valid JSON: %w", err))
	}
	if err := entry.schema.Validate(decoded); err != nil {
		return "", newToolError(KindInvalidArguments, name, err)
	}

	result, err := entry.handler(ctx, args)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return "", err
		}
		return "", newToolError(KindUpstreamError, name, err)
	}

	r.logger.Debug("tool invoked", "tool", name, "result_len", len(result))
	return result, nil
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, entry := range r.tools {
		out = append(out, entry.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Defs returns the tool definitions in the model gateway's shape.
func (r *Registry) Defs() []llm.ToolDef {
	descs := r.List()
	out := make([]llm.ToolDef, len(descs))
	for i, d := range descs {
		out[i] = llm.ToolDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return out
}

// SourceLabel returns the data source label for a tool, if registered.
func (r *Registry) SourceLabel(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.tools[name]; ok {
		return entry.desc.SourceLabel, true
	}
	return "", false
}
