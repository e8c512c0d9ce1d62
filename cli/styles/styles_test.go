package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "done")
	assert.Contains(t, FormatSuccess("done"), IconSuccess)
	assert.Contains(t, FormatError("boom"), IconError)
	assert.Contains(t, FormatWarning("careful"), IconWarning)
	assert.Contains(t, FormatInfo("note"), IconInfo)
}

func TestFormatKeyValue(t *testing.T) {
	out := FormatKeyValue("Driver", "sqlite")

	assert.Contains(t, out, "Driver:")
	assert.Contains(t, out, "sqlite")
}

func TestFormatStep(t *testing.T) {
	assert.Contains(t, FormatStep(2, 5, "importing notes"), "[2/5]")
	assert.Contains(t, FormatStep(2, 5, "importing notes"), "importing notes")
}
