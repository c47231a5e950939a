package machine

import (
	"strings"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/spf13/afero"
)

// ActiveKey is the reserved store entry holding the selected machine
const ActiveKey = "_active"

// Registry is the machine store: an ordered mapping of profile names to
// machine profiles plus reserved metadata entries.
type Registry struct {
	fs   afero.Fs
	path string
	doc  *core.Object
}

// Load reads the machine store at path
func Load(fs afero.Fs, path string) (*Registry, error) {
	doc, err := core.ReadObject(fs, path)
	if err != nil {
		return nil, err
	}
	return &Registry{fs: fs, path: path, doc: doc}, nil
}

// Path returns the store location
func (r *Registry) Path() string {
	return r.path
}

// IsReserved reports whether a store key holds metadata instead of a profile
func IsReserved(key string) bool {
	return strings.HasPrefix(key, "_") || strings.HasPrefix(key, "$")
}

func (r *Registry) entries(visit func(name string, obj *core.Object) bool) {
	for pair := r.doc.Oldest(); pair != nil; pair = pair.Next() {
		if IsReserved(pair.Key) {
			continue
		}
		obj, ok := core.AsObject(pair.Value)
		if !ok {
			continue
		}
		if !visit(pair.Key, obj) {
			return
		}
	}
}

// List returns the profile names in store order
func (r *Registry) List() []string {
	names := make([]string, 0)
	r.entries(func(name string, _ *core.Object) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Get decodes the named profile
func (r *Registry) Get(name string) (*Profile, error) {
	obj, ok := r.lookup(name)
	if !ok {
		return nil, &core.NotFoundError{Kind: "machine profile", Name: name, Available: r.List()}
	}
	return decodeProfile(name, obj)
}

func (r *Registry) lookup(name string) (*core.Object, bool) {
	if IsReserved(name) {
		return nil, false
	}
	v, ok := r.doc.Get(name)
	if !ok {
		return nil, false
	}
	return core.AsObject(v)
}

// Detect returns the first profile, in store order, that matches host
func (r *Registry) Detect(host Host) (string, bool) {
	var found string
	r.entries(func(name string, obj *core.Object) bool {
		platform, _ := core.GetString(obj, "platform")
		hostname, _ := core.GetString(obj, "hostname")
		candidate := Profile{Platform: platform, Hostname: hostname}
		if candidate.Matches(host) {
			found = name
			return false
		}
		return true
	})
	return found, found != ""
}

// Active returns the recorded machine selection
func (r *Registry) Active() Active {
	name, _ := core.GetString(r.doc, ActiveKey)
	return ActiveNamed(name)
}

// SetActive records name as the active machine and rewrites the store.
// Every other entry is kept as-is.
func (r *Registry) SetActive(name string) error {
	if _, ok := r.lookup(name); !ok {
		return &core.NotFoundError{Kind: "machine profile", Name: name, Available: r.List()}
	}
	r.doc.Set(ActiveKey, name)
	return core.WriteDocument(r.fs, r.path, r.doc)
}
