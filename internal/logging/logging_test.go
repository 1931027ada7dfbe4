package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"marketquotes/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithOutput(&buf, "debug", "JSON")
	log.WithField("symbol", "AAPL").Debug("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "resolved", entry["msg"])
	require.Equal(t, "AAPL", entry["symbol"])
}

func TestNew_UnknownLevel(t *testing.T) {
	t.Parallel()

	log := logging.NewWithOutput(&bytes.Buffer{}, "chatty", "")
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
