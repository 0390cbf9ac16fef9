// internal/commands/backend.go
package scour

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scourlabs/scour/internal/appconfig"
	"github.com/scourlabs/scour/internal/backend"
)

// createBackend builds the configured LLM backend.
func createBackend(cfg *appconfig.Config) (backend.Backend, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("no model configured; pass --model or set it in the config file")
	}
	switch cfg.Provider {
	case "openai":
		return backend.NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.RequestTimeout()), nil
	case "ollama":
		return backend.NewOllama(cfg.Model, cfg.BaseURL, cfg.RequestTimeout()), nil
	case "":
		return nil, fmt.Errorf("no provider configured; pass --provider openai or --provider ollama")
	default:
		return nil, fmt.Errorf("unknown provider %q; use openai or ollama", cfg.Provider)
	}
}

// readInstructions resolves the instructions flag: "@path" reads a file,
// "-" reads stdin, anything else is taken verbatim.
func readInstructions(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, "@"):
		data, err := os.ReadFile(value[1:])
		if err != nil {
			return "", fmt.Errorf("could not read instructions file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case value == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("could not read instructions from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return value, nil
	}
}
