package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "renewal-bot", cfg.App.Name)
	assert.Equal(t, "http://localhost:9222", cfg.Browser.DebuggerURL)
	assert.Equal(t, 23985, cfg.Workflow.IncomeMin)
	assert.Equal(t, 24445, cfg.Workflow.IncomeMax)
	assert.Equal(t, 3, cfg.Workflow.StepRetries)
	assert.Contains(t, cfg.Carriers.Approved, "molina")
	assert.Equal(t, "renewal_audit.jsonl", cfg.Audit.FilePath)
	assert.Equal(t, 8*time.Second, cfg.Workflow.StepTimeoutDuration())
	assert.Equal(t, 15*time.Second, cfg.Workflow.SignatureTimeoutDuration())
}

func TestProcessedPathDefaultsFromListPath(t *testing.T) {
	cfg := &Config{}
	cfg.Source.ListPath = "lists/august.txt"
	applyDefaults(cfg)
	assert.Equal(t, "lists/august.txt.processed", cfg.Source.ProcessedPath)
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	require.NoError(t, validateConfig(cfg))

	bad := *cfg
	bad.Workflow.IncomeMin = 30000
	bad.Workflow.IncomeMax = 25000
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Carriers.Approved = nil
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Database.Postgres.Enabled = true
	assert.Error(t, validateConfig(&bad), "postgres enabled without host must fail")
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, User: "bot", Password: "pw",
		Database: "renewal", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=bot password=pw dbname=renewal sslmode=disable",
		p.GetDSN())
}
