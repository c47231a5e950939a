package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fabiofalopes/opencode/engine/core"
)

// Report collects the outcome of a validation pass.
// Only Errors make the pass fail.
type Report struct {
	Errors   []error
	Warnings []string
	Info     []string
}

// Valid reports whether the pass found no errors
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err joins every error of the pass, or returns nil
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Report) addError(err error) {
	r.Errors = append(r.Errors, err)
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) infof(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// ValidateAll checks every profile against the base template's agent names and
// the provider policy.
func (r *Registry) ValidateAll(baseAgents []string, policy Policy) *Report {
	report := &Report{}
	report.infof("Found %d agents in base config: %s", len(baseAgents), strings.Join(baseAgents, ", "))
	for pair := r.doc.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		report.infof("Validating profile '%s'", name)
		if provider, ok := policy.ForbiddenIn(name); ok {
			report.addError(&core.ForbiddenProviderError{Subject: fmt.Sprintf("profile '%s'", name), Provider: provider})
			continue
		}
		obj, ok := core.AsObject(pair.Value)
		if !ok {
			report.addError(&core.ShapeError{Subject: r.path, Field: name, Value: pair.Value, Expected: "a profile object"})
			continue
		}
		p, err := decode(name, obj)
		if err != nil {
			report.addError(err)
			continue
		}
		validateProfile(p, obj, baseAgents, policy, report)
	}
	return report
}

func validateProfile(p *Profile, obj *core.Object, baseAgents []string, policy Policy, report *Report) {
	subject := fmt.Sprintf("profile '%s'", p.Name)
	if p.Description == "" {
		report.warnf("Profile '%s' missing description", p.Name)
	}
	if p.Model == "" {
		report.addError(&core.MissingFieldError{Subject: subject, Field: "model", Reason: "(global model)"})
	} else {
		report.infof("Global model: %s", p.Model)
		checkModelID(p.Model, subject, policy, report)
	}
	if agents, ok := obj.Get("agents"); !ok || agents == nil {
		report.warnf("Profile '%s' has no agent overrides", p.Name)
		return
	}
	report.infof("Agent overrides: %d", len(p.Agents))
	covered := make([]string, 0, len(p.Agents))
	for _, agent := range p.Agents {
		covered = append(covered, agent.Name)
		if !slices.Contains(baseAgents, agent.Name) {
			report.warnf("Agent '%s' in profile but not in base config", agent.Name)
			continue
		}
		checkModelID(agent.Model, fmt.Sprintf("%s agent '%s'", subject, agent.Name), policy, report)
	}
	var missing []string
	for _, name := range baseAgents {
		if !slices.Contains(covered, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		report.warnf("Missing agent overrides in '%s': %s", p.Name, strings.Join(missing, ", "))
	}
}

func checkModelID(id, subject string, policy Policy, report *Report) {
	model, err := ParseModelID(subject, id)
	if err != nil {
		report.addError(err)
		return
	}
	switch {
	case policy.IsAllowed(model.Provider):
		report.infof("Model '%s' uses approved provider '%s'", id, model.Provider)
	case policy.IsForbidden(model.Provider):
		report.addError(&core.ForbiddenProviderError{Subject: fmt.Sprintf("model '%s' in %s", id, subject), Provider: model.Provider})
	default:
		report.warnf("Unknown provider '%s' in %s, verify it is accessible", model.Provider, subject)
	}
}
