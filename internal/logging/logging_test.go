// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DebugLowersLevel(t *testing.T) {
	logger := New(Options{Debug: true})
	require.NotNil(t, logger)
	require.True(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestNew_DefaultLevelIsInfo(t *testing.T) {
	logger := New(Options{})
	require.NotNil(t, logger)
	require.False(t, logger.Enabled(nil, slog.LevelDebug))
	require.True(t, logger.Enabled(nil, slog.LevelInfo))
}

func TestNew_InstallsProcessDefault(t *testing.T) {
	logger := New(Options{})
	require.Same(t, logger.Handler(), slog.Default().Handler())
}
