package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
identity:
  company_names:
    - HYPERVISUAL
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 85.0, cfg.Matcher.CommitThreshold, 1e-9)
	assert.InDelta(t, 60.0, cfg.Matcher.ReviewThreshold, 1e-9)
	assert.Equal(t, 90, cfg.Matcher.WindowDays)
	assert.InDelta(t, 0.3, cfg.Extractor.SnapTolerance, 1e-9)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, []string{"HYPERVISUAL"}, cfg.Identity.CompanyNames)
}

func TestLoadRejectsMissingIdentity(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity.company_names")
}

func TestLoadRejectsMalformedTaxID(t *testing.T) {
	path := writeConfig(t, `
identity:
  company_names: [HYPERVISUAL]
  tax_ids: ["CHE-100.968.49"]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Swiss UID")
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
identity:
  company_names: [HYPERVISUAL]
matcher:
  review_threshold: 90.0
  commit_threshold: 85.0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review_threshold")
}
