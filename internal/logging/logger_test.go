package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithOutput_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", &buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Str("symbol", "600900").Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), `"symbol":"600900"`)
}

func TestNewSilent_DiscardsEverything(t *testing.T) {
	log := NewSilent()
	log.Error().Msg("nothing to see")
}
