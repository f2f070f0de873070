package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persomem "github.com/persomem/persomem-go/pkg/core"
)

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *persomem.Config)
	}{
		{
			name: "sqlite with openai",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "sqlite",
				"SQLITE_PATH":       "./test.db",
				"LLM_PROVIDER":      "openai",
				"LLM_API_KEY":       "test-key",
				"LLM_MODEL":         "gpt-4o-mini",
			},
			check: func(t *testing.T, config *persomem.Config) {
				assert.Equal(t, "sqlite", config.Store.Provider)
				assert.Equal(t, "./test.db", config.Store.Config["db_path"])
				assert.Equal(t, "openai", config.LLM.Provider)
				assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
			},
		},
		{
			name: "deepseek defaults",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "sqlite",
				"LLM_PROVIDER":      "deepseek",
				"LLM_API_KEY":       "test-key",
			},
			check: func(t *testing.T, config *persomem.Config) {
				assert.Equal(t, "deepseek", config.LLM.Provider)
				assert.Equal(t, "deepseek-chat", config.LLM.Model)
				assert.Equal(t, "https://api.deepseek.com", config.LLM.BaseURL)
			},
		},
		{
			name: "postgres store",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "postgres",
				"POSTGRES_HOST":     "db.internal",
				"POSTGRES_PORT":     "5433",
				"LLM_PROVIDER":      "openai",
				"LLM_API_KEY":       "test-key",
			},
			check: func(t *testing.T, config *persomem.Config) {
				assert.Equal(t, "postgres", config.Store.Provider)
				assert.Equal(t, "db.internal", config.Store.Config["host"])
				assert.Equal(t, 5433, config.Store.Config["port"])
			},
		},
		{
			name: "extraction defaults",
			envVars: map[string]string{
				"LLM_PROVIDER": "openai",
				"LLM_API_KEY":  "test-key",
			},
			check: func(t *testing.T, config *persomem.Config) {
				assert.Equal(t, "English", config.Extraction.Language)
				assert.Equal(t, "User", config.Extraction.Username)
				assert.Equal(t, 10, config.Extraction.TopK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			config, err := persomem.LoadConfigFromEnv()
			require.NoError(t, err)
			require.NoError(t, config.Validate())
			tt.check(t, config)
		})
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"llm": {"provider": "openai", "api_key": "k", "model": "gpt-4o-mini"},
		"store": {"provider": "sqlite", "config": {"db_path": "./x.db"}},
		"extraction": {"language": "French", "top_k": 5}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := persomem.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "sqlite", config.Store.Provider)
	assert.Equal(t, "French", config.Extraction.Language)
	assert.Equal(t, 5, config.Extraction.TopK)
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := persomem.LoadConfigFromJSON("/nonexistent/config.json")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &persomem.Config{
		LLM: persomem.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
	}
	assert.NoError(t, valid.Validate())

	missingProvider := &persomem.Config{
		LLM: persomem.LLMConfig{Model: "gpt-4o-mini"},
	}
	err := missingProvider.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, persomem.ErrInvalidConfig)

	missingModel := &persomem.Config{
		LLM: persomem.LLMConfig{Provider: "openai"},
	}
	assert.Error(t, missingModel.Validate())
}
