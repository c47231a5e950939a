package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered JSON object.
// Key order matters: machine detection walks entries in store order and
// composed documents must serialize byte-identically across runs.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered object
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// AsObject reports whether v is an ordered object
func AsObject(v any) (*Object, bool) {
	obj, ok := v.(*Object)
	return obj, ok && obj != nil
}

// Keys returns the object keys in insertion order
func Keys(obj *Object) []string {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// GetString returns the string stored under key, if any
func GetString(obj *Object, key string) (string, bool) {
	if obj == nil {
		return "", false
	}
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ParseDocument parses JSON into an ordered tree of *Object, []any, string,
// bool, json.Number and nil.
func ParseDocument(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON document")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject parses JSON whose top level must be an object
func ParseObject(data []byte) (*Object, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	obj, ok := AsObject(doc)
	if !ok {
		return nil, errors.New("top-level value is not an object")
	}
	return obj, nil
}

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.String()
	}
	if r.IsArray() {
		arr := make([]any, 0)
		r.ForEach(func(_, value gjson.Result) bool {
			arr = append(arr, fromResult(value))
			return true
		})
		return arr
	}
	obj := NewObject()
	r.ForEach(func(key, value gjson.Result) bool {
		obj.Set(key.String(), fromResult(value))
		return true
	})
	return obj
}

// MarshalDocument renders v as two-space indented JSON with a trailing newline.
func MarshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadDocument loads and parses a JSON file
func ReadDocument(fs afero.Fs, path string) (any, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Kind: "file", Name: path}
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, &ParseError{File: path, Cause: err}
	}
	return doc, nil
}

// ReadObject loads a JSON file whose top level must be an object
func ReadObject(fs afero.Fs, path string) (*Object, error) {
	doc, err := ReadDocument(fs, path)
	if err != nil {
		return nil, err
	}
	obj, ok := AsObject(doc)
	if !ok {
		return nil, &ShapeError{Subject: path, Value: fmt.Sprintf("%T", doc), Expected: "a JSON object"}
	}
	return obj, nil
}

// WriteDocument replaces the file at path with the rendered document.
// The write goes to a sibling temp file first and is renamed into place, so
// readers never observe a partially written artifact.
func WriteDocument(fs afero.Fs, path string, v any) error {
	data, err := MarshalDocument(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// ToPlain converts an ordered tree into plain maps and slices.
// Numbers become int64 when integral and float64 otherwise.
func ToPlain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		m := make(map[string]any, t.Len())
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			m[pair.Key] = ToPlain(pair.Value)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToPlain(item)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
