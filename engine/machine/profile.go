package machine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/engine/schema"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Profile describes one host: its platform, an optional hostname fragment and
// the logical path table referenced by {machine:<key>} placeholders.
type Profile struct {
	Name        string            `mapstructure:"-"`
	Platform    string            `mapstructure:"platform"    validate:"required"`
	Hostname    string            `mapstructure:"hostname"`
	Description string            `mapstructure:"description"`
	Paths       map[string]string `mapstructure:"paths"`
	MCPs        map[string]bool   `mapstructure:"mcps"`

	// PathKeys lists the keys of Paths in store order
	PathKeys []string `mapstructure:"-"`
}

// Matches reports whether the profile applies to host.
// A profile without hostname matches every host on its platform.
func (p *Profile) Matches(host Host) bool {
	if p.Platform != host.Platform {
		return false
	}
	if p.Hostname == "" {
		return true
	}
	return strings.Contains(strings.ToLower(host.Hostname), strings.ToLower(p.Hostname))
}

func decodeProfile(name string, obj *core.Object) (*Profile, error) {
	profile := &Profile{Name: name}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           profile,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(core.ToPlain(obj)); err != nil {
		return nil, &core.ShapeError{
			Subject:  fmt.Sprintf("machine profile '%s'", name),
			Value:    err.Error(),
			Expected: "platform, hostname, description, paths and mcps fields",
		}
	}
	if paths, ok := obj.Get("paths"); ok {
		if pathsObj, ok := core.AsObject(paths); ok {
			profile.PathKeys = core.Keys(pathsObj)
		}
	}
	if profile.Paths == nil {
		profile.Paths = map[string]string{}
	}
	if err := schema.NewStructValidator(profile).Validate(context.Background()); err != nil {
		return nil, toFieldError(name, err)
	}
	return profile, nil
}

func toFieldError(name string, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &core.MissingFieldError{
			Subject: fmt.Sprintf("machine profile '%s'", name),
			Field:   strings.ToLower(fieldErrs[0].Field()),
		}
	}
	return fmt.Errorf("invalid machine profile '%s': %w", name, err)
}

// Host identifies the machine the tool is running on
type Host struct {
	Platform string
	Hostname string
}

// CurrentHost returns the live platform and hostname.
// Platform names follow the identifiers used by existing machine stores.
func CurrentHost() (Host, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Host{}, fmt.Errorf("failed to read hostname: %w", err)
	}
	return Host{Platform: Platform(runtime.GOOS), Hostname: hostname}, nil
}

// Platform maps a GOOS value to its machine store identifier
func Platform(goos string) string {
	if goos == "windows" {
		return "win32"
	}
	return goos
}
