package mcp

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/fabiofalopes/opencode/engine/core"
)

// Type is the transport kind of a service definition
type Type string

const (
	TypeLocal  Type = "local"
	TypeRemote Type = "remote"
)

// AllowedFields lists every top-level field a service definition may carry
var AllowedFields = []string{
	"type",
	"command",
	"environment",
	"enabled",
	"timeout",
	"url",
	"headers",
	"oauth",
}

// Definition is one named service definition together with the file it came from.
// Fields is carried verbatim into the composed document.
type Definition struct {
	Name   string
	Source string
	Fields any
}

// Object returns the definition body when it is a JSON object
func (d *Definition) Object() (*core.Object, bool) {
	return core.AsObject(d.Fields)
}

// Enabled reports the definition's enabled flag; definitions without one are enabled
func (d *Definition) Enabled() bool {
	obj, ok := d.Object()
	if !ok {
		return false
	}
	v, ok := obj.Get("enabled")
	if !ok {
		return true
	}
	enabled, isBool := v.(bool)
	return !isBool || enabled
}

// Type returns the declared transport, or "" when absent or not a string
func (d *Definition) Type() Type {
	obj, ok := d.Object()
	if !ok {
		return ""
	}
	s, _ := core.GetString(obj, "type")
	return Type(s)
}

// Validate checks a definition against the allowed fields and the per-type
// required fields. Every violation is returned.
func (d *Definition) Validate() []error {
	return Validate(d.Name, d.Fields, d.Source)
}

// Validate checks one service definition body. source names the originating file.
func Validate(name string, fields any, source string) []error {
	subject := fmt.Sprintf("server '%s'", name)
	obj, ok := core.AsObject(fields)
	if !ok {
		return []error{&core.ShapeError{Subject: subject, Value: fields, Expected: "an object"}}
	}
	var errs []error
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if !slices.Contains(AllowedFields, pair.Key) {
			errs = append(errs, &core.UnknownFieldError{Subject: subject, Field: pair.Key, Source: displaySource(source)})
		}
	}
	typ, _ := obj.Get("type")
	switch {
	case !truthy(typ):
		errs = append(errs, &core.MissingFieldError{Subject: subject, Field: "type"})
	case typ == string(TypeLocal):
		if command, _ := obj.Get("command"); !truthy(command) {
			errs = append(errs, &core.MissingFieldError{Subject: subject, Field: "command", Reason: "for local server"})
		}
	case typ == string(TypeRemote):
		if url, _ := obj.Get("url"); !truthy(url) {
			errs = append(errs, &core.MissingFieldError{Subject: subject, Field: "url", Reason: "for remote server"})
		}
	default:
		errs = append(errs, &core.ShapeError{
			Subject:  subject,
			Field:    "type",
			Value:    typ,
			Expected: fmt.Sprintf("'%s' or '%s'", TypeLocal, TypeRemote),
		})
	}
	return errs
}

func displaySource(source string) string {
	if source == "" {
		return ""
	}
	return filepath.Base(source)
}

// truthy follows JSON truthiness: null, false, "", and zero are false.
// Empty arrays and objects count as present.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
