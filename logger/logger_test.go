package logger

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter_TeesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := InitializeWithWriter("production", &buf)

	l.Info("http_request")
	_ = l.Sync()

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestFromGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	InitializeWithWriter("production", &buf)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(RequestIDKey, "req-1")
	c.Set(SessionIDKey, "sess-1")

	FromGin(c).Info("cart updated")
	_ = Log.Sync()

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"session_id":"sess-1"`)
}
