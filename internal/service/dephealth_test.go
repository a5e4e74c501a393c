package service

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDephealthService_WithoutPostgres(t *testing.T) {
	ds, err := NewDephealthServiceWithRegisterer(
		"transfer-portal",
		"transfer-portal",
		DephealthTargets{
			RcloneAPIURL: "https://rclone-api.example.com",
			JWKSURL:      "https://www.googleapis.com/oauth2/v3/certs",
		},
		15*time.Second,
		testLogger(),
		prometheus.NewRegistry(),
	)
	require.NoError(t, err)
	assert.NotNil(t, ds)
}
