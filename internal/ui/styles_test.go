package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStyles_ReturnsStyles(t *testing.T) {
	styles := DefaultStyles()

	assert.NotNil(t, styles.Header)
	assert.NotNil(t, styles.Label)
	assert.NotNil(t, styles.Value)
	assert.NotNil(t, styles.Good)
	assert.NotNil(t, styles.Warn)
	assert.NotNil(t, styles.Dim)
	assert.NotNil(t, styles.Panel)
}

func TestDefaultStyles_HeaderRendersText(t *testing.T) {
	styles := DefaultStyles()

	rendered := styles.Header.Render("Test")
	assert.Contains(t, rendered, "Test")
}

func TestNoColorStyles_RendersPlainText(t *testing.T) {
	styles := NoColorStyles()

	assert.Equal(t, "test", styles.Good.Render("test"))
	assert.Equal(t, "test", styles.Warn.Render("test"))
	assert.Equal(t, "test", styles.Header.Render("test"))
}

func TestGetStyles_WithNoColor(t *testing.T) {
	styles := GetStyles(true)

	text := styles.Good.Render("test")
	assert.Equal(t, "test", text)
}

func TestGetStyles_WithColor(t *testing.T) {
	styles := GetStyles(false)

	text := styles.Good.Render("test")
	assert.Contains(t, text, "test")
}
