package profile

import (
	"fmt"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/spf13/afero"
)

// AgentOverride pins one agent to a model id
type AgentOverride struct {
	Name  string
	Model string
}

// Profile is a named usage profile: a global model plus per-agent overrides
type Profile struct {
	Name        string
	Description string
	Model       string
	Agents      []AgentOverride

	raw *core.Object
}

// Raw returns the profile as stored, for placeholder lookups
func (p *Profile) Raw() *core.Object {
	return p.raw
}

// Registry holds the usage profiles in store order
type Registry struct {
	path string
	doc  *core.Object
}

// Load reads the profile store at path
func Load(fs afero.Fs, path string) (*Registry, error) {
	doc, err := core.ReadObject(fs, path)
	if err != nil {
		return nil, err
	}
	return &Registry{path: path, doc: doc}, nil
}

// Path returns the store location
func (r *Registry) Path() string {
	return r.path
}

// Names returns the profile names in store order
func (r *Registry) Names() []string {
	names := make([]string, 0, r.doc.Len())
	for pair := r.doc.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := core.AsObject(pair.Value); ok {
			names = append(names, pair.Key)
		}
	}
	return names
}

// Resolve returns the named profile
func (r *Registry) Resolve(name string) (*Profile, error) {
	v, ok := r.doc.Get(name)
	if !ok {
		return nil, &core.NotFoundError{Kind: "profile", Name: name, Available: r.Names()}
	}
	obj, ok := core.AsObject(v)
	if !ok {
		return nil, &core.NotFoundError{Kind: "profile", Name: name, Available: r.Names()}
	}
	return decode(name, obj)
}

func decode(name string, obj *core.Object) (*Profile, error) {
	subject := fmt.Sprintf("profile '%s'", name)
	p := &Profile{Name: name, raw: obj}
	var err error
	if p.Description, err = optionalString(obj, "description", subject); err != nil {
		return nil, err
	}
	if p.Model, err = optionalString(obj, "model", subject); err != nil {
		return nil, err
	}
	agents, ok := obj.Get("agents")
	if !ok || agents == nil {
		return p, nil
	}
	agentsObj, ok := core.AsObject(agents)
	if !ok {
		return nil, &core.ShapeError{Subject: subject, Field: "agents", Value: agents, Expected: "an object of agent name to model id"}
	}
	for pair := agentsObj.Oldest(); pair != nil; pair = pair.Next() {
		model, ok := pair.Value.(string)
		if !ok {
			return nil, &core.ShapeError{
				Subject:  subject,
				Field:    "agents." + pair.Key,
				Value:    pair.Value,
				Expected: "a model id string",
			}
		}
		p.Agents = append(p.Agents, AgentOverride{Name: pair.Key, Model: model})
	}
	return p, nil
}

func optionalString(obj *core.Object, key, subject string) (string, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &core.ShapeError{Subject: subject, Field: key, Value: v, Expected: "a string"}
	}
	return s, nil
}
