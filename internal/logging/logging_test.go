package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qdrantd/internal/logging"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := logging.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	cfg = logging.Config{Level: "debug", Format: "console"}
	cfg.ApplyDefaults()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{"valid json", logging.Config{Level: "info", Format: "json"}, false},
		{"valid console", logging.Config{Level: "debug", Format: "console"}, false},
		{"valid error level", logging.Config{Level: "error", Format: "json"}, false},
		{"invalid level", logging.Config{Level: "loud", Format: "json"}, true},
		{"invalid format", logging.Config{Level: "info", Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := logging.New(logging.Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("defaults work")

	logger, err = logging.New(logging.Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = logging.New(logging.Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = logging.New(logging.Config{Level: "bogus"})
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	logger, err := logging.New(logging.Config{})
	require.NoError(t, err)
	logger.Info("entry before sync")
	assert.NoError(t, logging.Sync(logger))
}
