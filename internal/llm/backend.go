package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownBackend is returned for backend names that are not supported.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend describes an OpenAI-compatible completion service.
type Backend struct {
	Name            string
	BaseURL         string
	DefaultModel    string
	DefaultProtocol string
	KeyEnv          string // Environment variable holding the credential
}

var (
	OpenAIBackend = Backend{
		Name:            "openai",
		BaseURL:         "https://api.openai.com/v1",
		DefaultModel:    "gpt-4o",
		DefaultProtocol: ProtocolFunctions,
		KeyEnv:          "OPENAI_API_KEY",
	}
	XAIBackend = Backend{
		Name:            "xai",
		BaseURL:         "https://api.x.ai/v1",
		DefaultModel:    "grok-beta",
		DefaultProtocol: ProtocolTools,
		KeyEnv:          "XAI_API_KEY",
	}
)

var backends = map[string]Backend{
	OpenAIBackend.Name: OpenAIBackend,
	XAIBackend.Name:    XAIBackend,
}

// BackendByName looks up a backend, case-insensitively.
func BackendByName(name string) (Backend, error) {
	b, ok := backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Backend{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownBackend, name, strings.Join(BackendNames(), ", "))
	}
	return b, nil
}

// BackendNames lists supported backends in stable order.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
