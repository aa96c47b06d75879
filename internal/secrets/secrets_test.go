// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nexus-search/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, BraveAPIKey, "  BSA_abc123  \n")
				writeFile(t, dir, "other-key", "value\n")
				return dir
			},
			want: map[string]string{
				BraveAPIKey: "BSA_abc123",
				"other-key": "value",
			},
		},
		{
			name: "missing directory is empty",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files, dotfiles, and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, BraveAPIKey, "BSA_real")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{BraveAPIKey: "BSA_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestApply(t *testing.T) {
	found := map[string]string{BraveAPIKey: "BSA_file", OpenAlexEmail: "me@example.org", "unrelated": "x"}

	cfg := types.Config{}
	Apply(&cfg, found)
	assert.Equal(t, "BSA_file", cfg.Search.BraveAPIKey)
	assert.Equal(t, "me@example.org", cfg.Search.OpenAlexEmail)

	cfg = types.Config{}
	cfg.Search.BraveAPIKey = "BSA_env"
	Apply(&cfg, found)
	assert.Equal(t, "BSA_env", cfg.Search.BraveAPIKey, "configured value wins")
}
