package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestInfoBlockWritesEachLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetLevel("info")

	InfoBlock("first\nsecond\n")
	out := buf.String()
	assert.Contains(t, out, "msg=first")
	assert.Contains(t, out, "msg=second")
}

func TestLLMTranscript(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	defer SetLLMWriter(nil)
	EnableLLMPayloadDump(true)
	defer EnableLLMPayloadDump(false)

	LogLLMRequest("trace-1", "openai", "sys", "user", []string{"chart"}, `{"k":1}`)
	LogLLMResponse("trace-1", "openai", `{"decision":"hold"}`)

	out := buf.String()
	assert.Contains(t, out, "[LLM][request][openai][trace-1]")
	assert.Contains(t, out, "--- IMAGE#1 ---")
	assert.Contains(t, out, "--- PAYLOAD ---")
	assert.Contains(t, out, "[LLM][response][openai][trace-1]")
}
