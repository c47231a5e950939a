package profile

import (
	"slices"
	"strings"

	"github.com/fabiofalopes/opencode/engine/core"
)

// Policy holds the provider allow-list and deny-list
type Policy struct {
	Allowed   []string
	Forbidden []string
}

// DefaultPolicy returns the built-in provider lists
func DefaultPolicy() Policy {
	return Policy{
		Allowed:   []string{"opencode", "google", "github-copilot"},
		Forbidden: []string{"openrouter"},
	}
}

// IsAllowed reports whether provider is on the allow-list
func (p Policy) IsAllowed(provider string) bool {
	return slices.Contains(p.Allowed, provider)
}

// IsForbidden reports whether provider is on the deny-list
func (p Policy) IsForbidden(provider string) bool {
	return slices.Contains(p.Forbidden, provider)
}

// ForbiddenIn returns the first deny-listed provider contained in name, case-insensitively
func (p Policy) ForbiddenIn(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, forbidden := range p.Forbidden {
		if forbidden != "" && strings.Contains(lower, strings.ToLower(forbidden)) {
			return forbidden, true
		}
	}
	return "", false
}

// ModelID is a parsed "provider/model" reference
type ModelID struct {
	Provider string
	Model    string
}

// ParseModelID splits id on its first slash. Provider and model must both be non-empty.
func ParseModelID(subject, id string) (ModelID, error) {
	provider, model, found := strings.Cut(id, "/")
	if !found || provider == "" || model == "" {
		return ModelID{}, &core.ShapeError{
			Subject:  subject,
			Field:    "model id",
			Value:    id,
			Expected: "provider/model",
		}
	}
	return ModelID{Provider: provider, Model: model}, nil
}

func (m ModelID) String() string {
	return m.Provider + "/" + m.Model
}
