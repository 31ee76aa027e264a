package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorCode(t *testing.T) {
	assert.Equal(t, ColorBlue, colorCode("ColorBlue"))
	assert.Equal(t, ColorReset, colorCode("unknown"))
}

func TestPrintBanner(t *testing.T) {
	var buf strings.Builder
	PrintBanner(&buf, "pm", "ColorGreen", "v1.0.0")

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, ColorGreen))
		assert.True(t, strings.HasSuffix(line, ColorReset))
	}
	assert.Contains(t, lines[len(lines)-1], "v1.0.0")
}
