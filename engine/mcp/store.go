package mcp

import (
	"errors"
	"fmt"

	"github.com/fabiofalopes/opencode/engine/autoload"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/spf13/afero"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultInclude    = "*.json"
	DefaultWrapperKey = "mcp"
)

// Store reads and updates the service definition files of one directory
type Store struct {
	fs         afero.Fs
	dir        string
	discovery  *autoload.Config
	wrapperKey string
}

// Option configures a Store
type Option func(*Store)

// WithWrapperKey sets the field under which a file may nest its definitions
func WithWrapperKey(key string) Option {
	return func(s *Store) {
		s.wrapperKey = key
	}
}

// WithDiscovery overrides the include and exclude patterns
func WithDiscovery(cfg *autoload.Config) Option {
	return func(s *Store) {
		if cfg != nil {
			s.discovery = cfg
		}
	}
}

// NewStore creates a store over dir
func NewStore(fs afero.Fs, dir string, opts ...Option) *Store {
	s := &Store{
		fs:         fs,
		dir:        dir,
		discovery:  autoload.NewConfig(DefaultInclude),
		wrapperKey: DefaultWrapperKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the definition directory
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether the definition directory exists
func (s *Store) Exists() bool {
	ok, err := afero.DirExists(s.fs, s.dir)
	return err == nil && ok
}

// Files returns the definition files in lexicographic order
func (s *Store) Files() ([]string, error) {
	discoverer := autoload.NewFileDiscoverer(s.fs, s.dir)
	return discoverer.Discover(s.discovery.Include, s.discovery.Exclude)
}

// servers returns the definition table of a file: the wrapped table when the
// wrapper field holds an object, the file itself otherwise.
func (s *Store) servers(doc *core.Object) *core.Object {
	if s.wrapperKey != "" {
		if wrapped, ok := doc.Get(s.wrapperKey); ok {
			if obj, ok := core.AsObject(wrapped); ok {
				return obj
			}
		}
	}
	return doc
}

// LoadAll merges every file in order. A later file replaces an earlier
// definition of the same name in full; the name keeps its first position.
func (s *Store) LoadAll() (*Catalog, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	catalog := newCatalog()
	for _, file := range files {
		doc, err := core.ReadObject(s.fs, file)
		if err != nil {
			return nil, err
		}
		catalog.files = append(catalog.files, file)
		servers := s.servers(doc)
		for pair := servers.Oldest(); pair != nil; pair = pair.Next() {
			catalog.set(&Definition{Name: pair.Key, Source: file, Fields: pair.Value})
		}
	}
	return catalog, nil
}

// SetEnabled sets the enabled flag of name in the first file, in order, that
// defines it and rewrites that file only. It returns the file updated.
func (s *Store) SetEnabled(name string, enabled bool) (string, error) {
	files, err := s.Files()
	if err != nil {
		return "", err
	}
	var available []string
	for _, file := range files {
		doc, err := core.ReadObject(s.fs, file)
		if err != nil {
			return "", err
		}
		servers := s.servers(doc)
		value, ok := servers.Get(name)
		if !ok || value == nil {
			available = append(available, core.Keys(servers)...)
			continue
		}
		def, ok := core.AsObject(value)
		if !ok {
			return "", &core.ShapeError{Subject: fmt.Sprintf("server '%s' in %s", name, file), Value: value, Expected: "an object"}
		}
		def.Set("enabled", enabled)
		if err := core.WriteDocument(s.fs, file, doc); err != nil {
			return "", err
		}
		return file, nil
	}
	return "", &core.NotFoundError{Kind: "MCP server", Name: name, Available: dedupe(available)}
}

// Catalog is the merged set of service definitions
type Catalog struct {
	defs  *orderedmap.OrderedMap[string, *Definition]
	files []string
}

func newCatalog() *Catalog {
	return &Catalog{defs: orderedmap.New[string, *Definition]()}
}

func (c *Catalog) set(def *Definition) {
	c.defs.Set(def.Name, def)
}

// Len returns the number of merged definitions
func (c *Catalog) Len() int {
	return c.defs.Len()
}

// Files returns the files that contributed, in merge order
func (c *Catalog) Files() []string {
	return c.files
}

// Names returns the service names in merge order
func (c *Catalog) Names() []string {
	names := make([]string, 0, c.defs.Len())
	for pair := c.defs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Get returns the winning definition for name
func (c *Catalog) Get(name string) (*Definition, bool) {
	return c.defs.Get(name)
}

// Definitions returns the winning definitions in merge order
func (c *Catalog) Definitions() []*Definition {
	defs := make([]*Definition, 0, c.defs.Len())
	for pair := c.defs.Oldest(); pair != nil; pair = pair.Next() {
		defs = append(defs, pair.Value)
	}
	return defs
}

// Validate validates every winning definition and joins the violations
func (c *Catalog) Validate() error {
	var errs []error
	for _, def := range c.Definitions() {
		errs = append(errs, def.Validate()...)
	}
	return errors.Join(errs...)
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// FileReport holds the violations found in one definition file
type FileReport struct {
	File     string
	Services []string
	Errors   []error
}

// ValidateFiles validates every definition of every file, including
// definitions that a later file overrides.
func (s *Store) ValidateFiles() ([]FileReport, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	reports := make([]FileReport, 0, len(files))
	for _, file := range files {
		doc, err := core.ReadObject(s.fs, file)
		if err != nil {
			return nil, err
		}
		report := FileReport{File: file}
		servers := s.servers(doc)
		for pair := servers.Oldest(); pair != nil; pair = pair.Next() {
			report.Services = append(report.Services, pair.Key)
			report.Errors = append(report.Errors, Validate(pair.Key, pair.Value, file)...)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
