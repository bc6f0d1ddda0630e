package cmd

import (
	"log/slog"
	"time"

	"github.com/simonyos/webpilot/internal/agent"
	"github.com/simonyos/webpilot/internal/config"
	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/logging"
)

// runOptions holds the flags of the root command
type runOptions struct {
	backend    string
	model      string
	protocol   string
	system     string
	transcript string
	envFile    string
	logLevel   string
	maxTurns   int
	plain      bool
	noHistory  bool
}

// settings is everything a session needs, resolved from flags and config
type settings struct {
	backend      llm.Backend
	model        string
	protocol     string
	apiKey       string
	baseURL      string
	maxTurns     int
	fetchTimeout time.Duration
	logLevel     slog.Level
	historyDB    string
}

// resolveSettings applies flags over config over backend defaults. The
// configured model and protocol only apply to the configured backend.
func resolveSettings(cfg *config.Config, o runOptions) (settings, error) {
	var s settings

	backend, err := llm.BackendByName(firstNonEmpty(o.backend, cfg.Backend))
	if err != nil {
		return s, err
	}
	s.backend = backend

	sameBackend := o.backend == "" || o.backend == cfg.Backend
	configModel, configProtocol := "", ""
	if sameBackend {
		configModel, configProtocol = cfg.Model, cfg.Protocol
	}
	s.model = firstNonEmpty(o.model, configModel, backend.DefaultModel)
	s.protocol = firstNonEmpty(o.protocol, configProtocol, backend.DefaultProtocol)
	if _, err := llm.ProtocolByName(s.protocol); err != nil {
		return s, err
	}

	s.apiKey, err = cfg.APIKey(backend.Name)
	if err != nil {
		return s, err
	}
	s.baseURL = firstNonEmpty(cfg.BaseURL, backend.BaseURL)

	switch {
	case o.maxTurns > 0:
		s.maxTurns = o.maxTurns
	case cfg.MaxTurns > 0:
		s.maxTurns = cfg.MaxTurns
	default:
		s.maxTurns = agent.DefaultMaxTurns
	}

	s.fetchTimeout = cfg.FetchTimeout
	s.logLevel, err = logging.ParseLevel(firstNonEmpty(o.logLevel, cfg.LogLevel))
	if err != nil {
		return s, err
	}
	s.historyDB = cfg.HistoryDB
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
