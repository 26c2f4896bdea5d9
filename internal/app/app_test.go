package app

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/models"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Generator:       "mock",
		GenerateTimeout: time.Second,
		StoreTimeout:    time.Second,
		CacheCapacity:   10,
		Durable:         "none",
		DefaultLanguage: "en",
		AuxConcurrency:  1,
	}
}

func TestBuildMock(t *testing.T) {
	a, err := Build(context.Background(), mockConfig(t), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Store.HasDurable())
	assert.False(t, a.Media.Features().TTS)

	st, err := a.Engine.StartSession(context.Background(), "Max", models.ScenarioHorror, "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TurnIndex)
}

func TestBuildWithSQLiteSurvivesRestart(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Durable = "sqlite"
	cfg.DBDSN = filepath.Join(t.TempDir(), "games.db")
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	a, err := Build(ctx, cfg, logger)
	require.NoError(t, err)
	st, err := a.Engine.StartSession(ctx, "Max", models.ScenarioFantasy, "")
	require.NoError(t, err)
	_, err = a.Engine.ProcessAction(ctx, st.ID, "look")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Build(ctx, cfg, logger)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Engine.GetState(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnIndex)
}

func TestBuildWithFileStore(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Durable = "file"
	cfg.SaveDir = t.TempDir()

	a, err := Build(context.Background(), cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.Store.HasDurable())
}

func TestBuildRejectsBadRulesFile(t *testing.T) {
	cfg := mockConfig(t)
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
