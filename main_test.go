package main

import (
	"DonorBot/config"
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:        config.StoreSQLite,
		DatabasePath: filepath.Join(t.TempDir(), "donorbot.db"),
		MetricsAddr:  "127.0.0.1:0",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

func TestRun_ClosesStoreWhenBotCannotStart(t *testing.T) {
	// the sqlite connection opener goroutine only exits on Close
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	cfg := testConfig(t)
	cfg.BotToken = ""

	err := run(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating bot")
}

func TestRun_QuestionnaireError(t *testing.T) {
	cfg := testConfig(t)
	cfg.BotToken = "123:abc"
	cfg.QuestionnairePath = filepath.Join(t.TempDir(), "missing.yaml")

	err := run(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading questionnaire")
}

func TestRun_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "postgres"

	err := run(context.Background(), cfg, prometheus.NewRegistry())
	assert.ErrorContains(t, err, `unknown store "postgres"`)
}
