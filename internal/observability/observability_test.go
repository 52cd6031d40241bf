package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{ServiceName: "orders-api", Enabled: false})

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewLogger_WritesJSON(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := newLogger("orders-api", &buf)

	// Act
	logger.Info("[CHECKOUT] order placed")
	require.NoError(t, logger.Sync())

	// Assert
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[CHECKOUT] order placed", entry["msg"])
	assert.Equal(t, "orders-api", entry["service.name"])
	assert.Equal(t, "info", entry["level"])
}
