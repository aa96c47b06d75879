// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file holds one secret: the filename is the key name and the trimmed file
// contents are the value.
//
// Recognized key files: brave-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// BraveAPIKey is the key file enabling the Brave engine.
const BraveAPIKey = "brave-api-key"

// OpenAlexEmail is the contact address file for the OpenAlex engine.
const OpenAlexEmail = "openalex-email"

// DefaultDir is where the CLI looks for key files.
const DefaultDir = ".secrets"

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty map. Unreadable files are logged and
// skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	found := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			found[name] = value
		}
	}
	return found, nil
}

// Apply copies recognized secrets into cfg. A value already set in cfg, from
// the config file or the environment, wins.
func Apply(cfg *types.Config, found map[string]string) {
	if v := found[BraveAPIKey]; v != "" && cfg.Search.BraveAPIKey == "" {
		cfg.Search.BraveAPIKey = v
	}
	if v := found[OpenAlexEmail]; v != "" && cfg.Search.OpenAlexEmail == "" {
		cfg.Search.OpenAlexEmail = v
	}
}
