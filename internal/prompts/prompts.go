// Package prompts holds the versioned system prompts sent ahead of every chat turn.
package prompts

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed data/*.txt
var files embed.FS

// Latest is the version used when none is configured.
const Latest = "v2"

// Load returns the system prompt for version. An override, when non-blank,
// wins over the embedded prompts.
func Load(version, override string) (string, error) {
	if s := strings.TrimSpace(override); s != "" {
		return s, nil
	}
	if version == "" {
		version = Latest
	}
	raw, err := files.ReadFile("data/" + version + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt version %q", version)
	}
	return strings.TrimSpace(string(raw)), nil
}
