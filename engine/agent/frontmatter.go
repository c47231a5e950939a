package agent

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterMarker = "---"

// ErrNoFrontmatter is returned when a file lacks the --- delimited header
var ErrNoFrontmatter = errors.New("no valid YAML frontmatter found (missing --- markers)")

// ParseFrontmatter extracts and decodes the YAML header of a markdown document
func ParseFrontmatter(content string) (map[string]any, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterMarker {
		return nil, ErrNoFrontmatter
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterMarker {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, ErrNoFrontmatter
	}
	header := strings.Join(lines[1:end], "\n")
	fields := make(map[string]any)
	if err := yaml.Unmarshal([]byte(header), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
