package composer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/engine/machine"
	"github.com/fabiofalopes/opencode/engine/mcp"
	"github.com/fabiofalopes/opencode/engine/profile"
	"github.com/fabiofalopes/opencode/engine/schema"
	"github.com/fabiofalopes/opencode/pkg/logger"
	"github.com/fabiofalopes/opencode/pkg/tplengine"
	"github.com/spf13/afero"
)

const (
	modelKey = "model"
	agentKey = "agent"
	mcpKey   = "mcp"
)

// Request selects the inputs of one composition.
// Machine and Profile are optional layers.
type Request struct {
	TemplatePath string
	OutputPath   string
	Machine      *machine.Profile
	Profile      *profile.Profile
}

// Result describes a successful composition
type Result struct {
	Document *core.Object
	Output   string

	// MachineKeys lists the {machine:…} keys substituted in the template
	MachineKeys []string
	// ProfileKeys lists the {profile:…} keys substituted in the template
	ProfileKeys []string
	// Overrides lists the agent model overrides applied
	Overrides []profile.AgentOverride
	// Services lists the merged service names in output order
	Services []string
	Warnings []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Composer layers machine paths, a usage profile and service definitions over
// a base template and persists the result.
type Composer struct {
	fs       afero.Fs
	services *mcp.Store
	schema   schema.Schema
}

// New creates a composer. services may be nil when no definition directory is used.
func New(fs afero.Fs, services *mcp.Store) *Composer {
	return &Composer{
		fs:       fs,
		services: services,
		schema:   schema.ComposedConfig(),
	}
}

// Compose builds the document in memory. Nothing is written.
func (c *Composer) Compose(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)
	doc, err := core.ReadObject(c.fs, req.TemplatePath)
	if err != nil {
		return nil, err
	}
	result := &Result{Output: req.OutputPath}
	if req.Machine != nil {
		resolved := tplengine.Resolve(doc, tplengine.MachineBinding(req.Machine.Paths))
		if len(resolved.Missing) > 0 {
			return nil, &core.UnresolvedPlaceholderError{
				Namespace: string(tplengine.NamespaceMachine),
				Keys:      resolved.Missing,
				Source:    req.TemplatePath,
			}
		}
		doc, _ = core.AsObject(resolved.Value)
		result.MachineKeys = resolved.Replaced
		log.Debug("Resolved machine placeholders", "machine", req.Machine.Name, "keys", resolved.Replaced)
	}
	if req.Profile != nil {
		binding, err := tplengine.ProfileBinding(profileSource(req.Profile))
		if err != nil {
			return nil, err
		}
		resolved := tplengine.Resolve(doc, binding)
		doc, _ = core.AsObject(resolved.Value)
		result.ProfileKeys = resolved.Replaced
		c.overlay(doc, req.Profile, result)
		log.Debug("Applied profile", "profile", req.Profile.Name, "overrides", len(result.Overrides))
	}
	if err := c.mergeServices(doc, req.Machine, result); err != nil {
		return nil, err
	}
	if err := c.check(ctx, doc, req.TemplatePath); err != nil {
		return nil, err
	}
	result.Document = doc
	return result, nil
}

// Build composes the document and replaces the output file with it.
// The output is left untouched when any step fails.
func (c *Composer) Build(ctx context.Context, req Request) (*Result, error) {
	result, err := c.Compose(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := core.WriteDocument(c.fs, req.OutputPath, result.Document); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Wrote composed configuration", "path", req.OutputPath, "services", len(result.Services))
	return result, nil
}

func profileSource(p *profile.Profile) any {
	if raw := p.Raw(); raw != nil {
		return raw
	}
	agents := make(map[string]any, len(p.Agents))
	for _, agent := range p.Agents {
		agents[agent.Name] = agent.Model
	}
	return map[string]any{
		"description": p.Description,
		"model":       p.Model,
		"agents":      agents,
	}
}

func (c *Composer) overlay(doc *core.Object, p *profile.Profile, result *Result) {
	if p.Model != "" {
		doc.Set(modelKey, p.Model)
	}
	var agents *core.Object
	if v, ok := doc.Get(agentKey); ok {
		agents, _ = core.AsObject(v)
	}
	for _, override := range p.Agents {
		var agent *core.Object
		if agents != nil {
			if v, ok := agents.Get(override.Name); ok {
				agent, _ = core.AsObject(v)
			}
		}
		if agent == nil {
			result.warnf("Agent '%s' in profile but not in base config", override.Name)
			continue
		}
		agent.Set(modelKey, override.Model)
		result.Overrides = append(result.Overrides, override)
	}
}

func (c *Composer) mergeServices(doc *core.Object, m *machine.Profile, result *Result) error {
	target, err := serviceTable(doc)
	if err != nil {
		return err
	}
	if c.services == nil {
		return nil
	}
	if !c.services.Exists() {
		result.warnf("No service definition directory at %s", c.services.Dir())
		return nil
	}
	catalog, err := c.services.LoadAll()
	if err != nil {
		return err
	}
	var errs []error
	for _, def := range catalog.Definitions() {
		fields := def.Fields
		if m != nil {
			resolved := tplengine.Resolve(fields, tplengine.MachineBinding(m.Paths))
			if len(resolved.Missing) > 0 {
				errs = append(errs, &core.UnresolvedPlaceholderError{
					Namespace: string(tplengine.NamespaceMachine),
					Keys:      resolved.Missing,
					Source:    def.Source,
				})
				continue
			}
			fields = resolved.Value
		}
		errs = append(errs, mcp.Validate(def.Name, fields, def.Source)...)
		target.Set(def.Name, fields)
		result.Services = append(result.Services, def.Name)
	}
	return errors.Join(errs...)
}

// serviceTable returns the document's service table, creating it when absent
func serviceTable(doc *core.Object) (*core.Object, error) {
	v, ok := doc.Get(mcpKey)
	if !ok || v == nil {
		table := core.NewObject()
		doc.Set(mcpKey, table)
		return table, nil
	}
	table, ok := core.AsObject(v)
	if !ok {
		return nil, &core.ShapeError{Subject: "base template", Field: mcpKey, Value: v, Expected: "an object"}
	}
	return table, nil
}

// check enforces that no placeholder survives and the document matches the schema
func (c *Composer) check(ctx context.Context, doc *core.Object, source string) error {
	validator := schema.NewCompositeValidator(
		schema.ValidatorFunc(func(context.Context) error {
			return unresolved(doc, source)
		}),
		schema.NewDocumentValidator(source, c.schema, doc),
	)
	return validator.Validate(ctx)
}

func unresolved(doc *core.Object, source string) error {
	tokens := tplengine.FindTokens(doc)
	if len(tokens) == 0 {
		return nil
	}
	byNamespace := make(map[tplengine.Namespace][]string)
	var order []tplengine.Namespace
	for _, token := range tokens {
		if _, ok := byNamespace[token.Namespace]; !ok {
			order = append(order, token.Namespace)
		}
		byNamespace[token.Namespace] = append(byNamespace[token.Namespace], token.Key)
	}
	errs := make([]error, 0, len(order))
	for _, ns := range order {
		errs = append(errs, &core.UnresolvedPlaceholderError{Namespace: string(ns), Keys: byNamespace[ns], Source: source})
	}
	return errors.Join(errs...)
}
