// Package prompt holds the system prompt prepended to every conversation.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed system_prompt.txt
var embedded string

// Prompt is an immutable system prompt. The zero value is not usable; build
// one with Default or Load.
type Prompt struct {
	text string
}

// Default returns the prompt compiled into the binary.
func Default() Prompt {
	return Prompt{text: embedded}
}

// Load reads the prompt from path, or returns Default when path is empty.
func Load(path string) (Prompt, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Prompt{}, fmt.Errorf("system prompt file %s is empty", path)
	}
	return Prompt{text: text}, nil
}

func (p Prompt) Text() string {
	return p.text
}

func (p Prompt) IsZero() bool {
	return p.text == ""
}
