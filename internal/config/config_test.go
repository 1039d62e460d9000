package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 1, cfg.Worker.Count)
	require.Equal(t, 64, cfg.Worker.QueueDepth)
	require.Equal(t, "local", cfg.Storage.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	require.Equal(t, 5*time.Minute, cfg.StageTimeout())
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
worker:
  count: 4
  queue_depth: 128
storage:
  provider: gcs
  gcs_bucket: outreach-blobs
messaging:
  positioning: "We help brands scale retention revenue."
  case_studies:
    - "Brand A: +40% repeat rate."
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 4, cfg.Worker.Count)
	require.Equal(t, "gcs", cfg.Storage.Provider)
	require.Equal(t, "outreach-blobs", cfg.Storage.GCSBucket)
	require.Len(t, cfg.Messaging.CaseStudies, 1)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("OUTREACH_SERVER_PORT", "7070")
	t.Setenv("OUTREACH_OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Worker.Count = 0
	require.ErrorContains(t, cfg.Validate(), "worker.count")

	cfg = base()
	cfg.Storage.Provider = "s3"
	require.ErrorContains(t, cfg.Validate(), "storage.provider")

	cfg = base()
	cfg.Storage.Provider = "gcs"
	cfg.Storage.GCSBucket = ""
	require.ErrorContains(t, cfg.Validate(), "storage.gcs_bucket")

	cfg = base()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = ""
	require.ErrorContains(t, cfg.Validate(), "auth.api_key")

	cfg = base()
	cfg.PubSub.TopicName = "outreach-events"
	require.ErrorContains(t, cfg.Validate(), "pubsub.project_id")
}
