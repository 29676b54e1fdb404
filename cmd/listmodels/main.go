// Command listmodels prints the models the configured API key can use.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/llm"
)

func main() {
	log.SetFlags(0)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completer, err := llm.New(ctx, cfg.Provider, cfg.APIKey, llm.Options{BaseURL: cfg.BaseURL, Model: cfg.Model})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		log.Fatalf("no API key set for provider %s", cfg.Provider)
	}
	if err != nil {
		log.Fatalf("client initialization failed: %v", err)
	}
	if c, ok := completer.(io.Closer); ok {
		defer c.Close()
	}

	lister, ok := completer.(llm.ModelLister)
	if !ok {
		log.Fatalf("provider %s cannot list models", cfg.Provider)
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Fatalf("list models error: %v", err)
	}

	log.Println("Available models:")
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
