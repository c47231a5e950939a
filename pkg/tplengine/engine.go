package tplengine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/tidwall/gjson"
)

// Namespace identifies the binding table a placeholder is resolved against
type Namespace string

const (
	// NamespaceMachine resolves {machine:<key>} against the active machine's paths
	NamespaceMachine Namespace = "machine"
	// NamespaceProfile resolves {profile:<dotted.key>} against the chosen usage profile
	NamespaceProfile Namespace = "profile"
)

// LookupFunc returns the bound value for key. ok=false marks the key as missing.
type LookupFunc func(key string) (value string, ok bool)

// Binding pairs a namespace with its lookup function
type Binding struct {
	Namespace Namespace
	Lookup    LookupFunc
}

// Result holds the resolved tree and the keys seen while resolving it
type Result struct {
	Value    any
	Replaced []string
	Missing  []string
}

// Token is a placeholder occurrence found in a tree
type Token struct {
	Namespace Namespace
	Key       string
}

func (t Token) String() string {
	return fmt.Sprintf("{%s:%s}", t.Namespace, t.Key)
}

var anyTokenPattern = regexp.MustCompile(`\{(machine|profile):([^}]+)\}`)

// Engine substitutes one namespace of placeholders across a JSON-like tree
type Engine struct {
	binding Binding
	pattern *regexp.Regexp
	marker  string
}

// NewEngine creates an engine for a single binding
func NewEngine(binding Binding) *Engine {
	ns := string(binding.Namespace)
	return &Engine{
		binding: binding,
		pattern: regexp.MustCompile(`\{` + regexp.QuoteMeta(ns) + `:([^}]+)\}`),
		marker:  "{" + ns + ":",
	}
}

// Resolve walks value and substitutes every placeholder of the engine's namespace.
// The input tree is not modified; unresolved tokens are left in place and
// reported through Result.Missing.
func Resolve(value any, binding Binding) *Result {
	return NewEngine(binding).Resolve(value)
}

// Resolve walks value and substitutes every placeholder of the engine's namespace
func (e *Engine) Resolve(value any) *Result {
	state := &walkState{replaced: newKeySet(), missing: newKeySet()}
	resolved := e.parseValue(value, state)
	return &Result{
		Value:    resolved,
		Replaced: state.replaced.list(),
		Missing:  state.missing.list(),
	}
}

type walkState struct {
	replaced *keySet
	missing  *keySet
}

func (e *Engine) parseValue(value any, state *walkState) any {
	switch v := value.(type) {
	case string:
		return e.parseStringValue(v, state)
	case *core.Object:
		if v == nil {
			return v
		}
		result := core.NewObject()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			result.Set(pair.Key, e.parseValue(pair.Value, state))
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = e.parseValue(val, state)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = e.parseValue(val, state)
		}
		return result
	default:
		return v
	}
}

func (e *Engine) parseStringValue(v string, state *walkState) string {
	if !strings.Contains(v, e.marker) {
		return v
	}
	return e.pattern.ReplaceAllStringFunc(v, func(match string) string {
		sub := e.pattern.FindStringSubmatch(match)
		key := strings.TrimSpace(sub[1])
		value, ok := e.binding.Lookup(key)
		if !ok {
			state.missing.add(key)
			return match
		}
		state.replaced.add(key)
		return value
	})
}

// MachineBinding binds {machine:<key>} to a flat path table.
// Every key absent from paths is reported as missing.
func MachineBinding(paths map[string]string) Binding {
	return Binding{
		Namespace: NamespaceMachine,
		Lookup: func(key string) (string, bool) {
			value, ok := paths[key]
			return value, ok
		},
	}
}

// ProfileBinding binds {profile:<dotted.key>} to a nested field lookup on profile.
// A lookup that fails at any segment resolves to the empty string and is not
// reported as missing.
func ProfileBinding(profile any) (Binding, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return Binding{}, fmt.Errorf("failed to encode profile for placeholder lookup: %w", err)
	}
	return Binding{
		Namespace: NamespaceProfile,
		Lookup: func(key string) (string, bool) {
			res := gjson.GetBytes(data, fieldPath(key))
			if !res.Exists() {
				return "", true
			}
			return res.String(), true
		},
	}, nil
}

// fieldPath turns a dotted key into a gjson path that only performs field access
func fieldPath(key string) string {
	segments := strings.Split(key, ".")
	for i, segment := range segments {
		segments[i] = escapePathSegment(segment)
	}
	return strings.Join(segments, ".")
}

func escapePathSegment(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		switch r {
		case '\\', '*', '?', '#', '|', '@', '!', '=', '<', '>', '%', '(', ')', '[', ']', '{', '}', ',', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindTokens returns every {machine:…} or {profile:…} token left in value,
// de-duplicated in first-seen order.
func FindTokens(value any) []Token {
	seen := make(map[Token]bool)
	var tokens []Token
	collectTokens(value, func(s string) {
		for _, sub := range anyTokenPattern.FindAllStringSubmatch(s, -1) {
			token := Token{Namespace: Namespace(sub[1]), Key: strings.TrimSpace(sub[2])}
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
	})
	return tokens
}

func collectTokens(value any, visit func(string)) {
	switch v := value.(type) {
	case string:
		visit(v)
	case *core.Object:
		if v == nil {
			return
		}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			collectTokens(pair.Value, visit)
		}
	case map[string]any:
		for _, val := range v {
			collectTokens(val, visit)
		}
	case []any:
		for _, val := range v {
			collectTokens(val, visit)
		}
	}
}

type keySet struct {
	index map[string]bool
	keys  []string
}

func newKeySet() *keySet {
	return &keySet{index: make(map[string]bool)}
}

func (s *keySet) add(key string) {
	if s.index[key] {
		return
	}
	s.index[key] = true
	s.keys = append(s.keys, key)
}

func (s *keySet) list() []string {
	return s.keys
}
