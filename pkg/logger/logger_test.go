package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WritesJSONToConfiguredWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Writer: &buf})

	log.Info().Str("component", "solver").Msg("hello")

	assert.Contains(t, buf.String(), `"component":"solver"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "verbose", Writer: &buf})

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
