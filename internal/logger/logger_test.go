package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"info":    log.InfoLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"bogus":   log.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestComponentLoggerCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug")
	t.Cleanup(func() { Logger = nil })

	Repository("permanence").Info("registered", "permanence_id", "p1")

	out := buf.String()
	assert.Contains(t, out, "registered")
	assert.Contains(t, out, "repository=permanence")
	assert.Contains(t, out, "permanence_id=p1")
}
