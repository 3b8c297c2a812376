package bootstrap

import (
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	require.Error(t, Run(Options{}))
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	var order []string
	err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		Stages: []Stage{
			{Name: "first", Run: func(*coreconfig.Config) error { order = append(order, "first"); return nil }},
			{Name: "skipped"},
			{Name: "second", Run: func(*coreconfig.Config) error { order = append(order, "second"); return nil }},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunStopsOnStageError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		Stages: []Stage{
			{Name: "catalog", Run: func(*coreconfig.Config) error { return boom }},
			{Name: "after", Run: func(*coreconfig.Config) error { called = true; return nil }},
		},
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "catalog")
	assert.False(t, called)
}

func TestRunWrapsLoggerError(t *testing.T) {
	err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no sink") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger init failed")
}
