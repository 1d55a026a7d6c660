// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package factory builds a provider of a given family from configuration.
package factory

import (
	"fmt"
	"net/http"

	"github.com/freitascorp/devopsmcp/pkg/config"
	"github.com/freitascorp/devopsmcp/pkg/llm"
	"github.com/freitascorp/devopsmcp/pkg/provider"
	"github.com/freitascorp/devopsmcp/pkg/provider/docs"
	"github.com/freitascorp/devopsmcp/pkg/provider/messaging"
	"github.com/freitascorp/devopsmcp/pkg/provider/notes"
	"github.com/freitascorp/devopsmcp/pkg/provider/reviewer"
)

// Provider is a built provider that can name its backend.
type Provider interface {
	provider.Provider
	Backend() string
}

// Options tune backend construction.
type Options struct {
	HTTPClient *http.Client
	LLM        llm.Options
	// Mock forces the mock backend regardless of credentials.
	Mock bool
}

// New builds the provider for family. Credentials in cfg.Env pick the real
// backend; without them the provider runs on its mock backend.
func New(family provider.Family, cfg *config.Config, opts Options) (Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	overrides, err := Overrides(cfg, family)
	if err != nil {
		return nil, err
	}
	env := cfg.Env
	if opts.Mock {
		env = config.Environment{LLM: "mock", MaxChars: env.MaxChars}
	}
	if opts.LLM.HTTPClient == nil {
		opts.LLM.HTTPClient = opts.HTTPClient
	}

	switch family {
	case provider.FamilyDocs:
		backend, err := docs.BackendFromEnv(env, opts.LLM)
		if err != nil {
			return nil, err
		}
		return built(docs.New(backend, env.MaxChars, overrides))
	case provider.FamilyNotes:
		return built(notes.New(notes.BackendFromEnv(env, opts.HTTPClient), overrides))
	case provider.FamilyMessaging:
		return built(messaging.New(messaging.BackendFromEnv(env, opts.HTTPClient), overrides))
	case provider.FamilyReviewer:
		backend, err := reviewer.BackendFromEnv(env, opts.LLM)
		if err != nil {
			return nil, err
		}
		return built(reviewer.New(backend, overrides))
	}
	return nil, fmt.Errorf("unknown provider family %q", family)
}

// built keeps a typed nil out of the interface on error.
func built[P Provider](p P, err error) (Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Overrides parses the per-tool validation settings for family.
func Overrides(cfg *config.Config, family provider.Family) (map[string]provider.Validation, error) {
	pc, ok := cfg.Providers[string(family)]
	if !ok || len(pc.Validation) == 0 {
		return nil, nil
	}
	out := make(map[string]provider.Validation, len(pc.Validation))
	for tool, v := range pc.Validation {
		parsed, err := provider.ParseValidation(v)
		if err != nil {
			return nil, fmt.Errorf("providers.%s.validation.%s: %w", family, tool, err)
		}
		out[tool] = parsed
	}
	return out, nil
}
