// Package transcript exports a finished session as YAML.
package transcript

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simonyos/webpilot/internal/llm"
)

// Transcript is the exported form of one session.
type Transcript struct {
	Session  string        `yaml:"session,omitempty"`
	Backend  string        `yaml:"backend"`
	Model    string        `yaml:"model"`
	Protocol string        `yaml:"protocol"`
	Status   string        `yaml:"status"`
	Turns    int           `yaml:"turns"`
	Answer   string        `yaml:"answer,omitempty"`
	Messages []llm.Message `yaml:"messages"`
}

// Write encodes t to w.
func Write(w io.Writer, t Transcript) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return enc.Close()
}

// WriteFile writes t to path, replacing any existing file.
func WriteFile(path string, t Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a transcript written by Write.
func Read(r io.Reader) (Transcript, error) {
	var t Transcript
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return Transcript{}, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return t, nil
}
