package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeNames(t *testing.T) {
	assert.Equal(t, []string{"gruvbox", "tokyo-night"}, ThemeNames())
}

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { SetTheme(themes[DefaultTheme]) })

	p, ok := GetPalette("gruvbox")
	require.True(t, ok)

	SetTheme(p)
	assert.Equal(t, p, CurrentPalette)

	cfg := GlamourStyle()
	require.NotNil(t, cfg.H2.Color)
	assert.Equal(t, string(p.Primary), *cfg.H2.Color)
}

func TestGetPalette_Unknown(t *testing.T) {
	_, ok := GetPalette("solarized")
	assert.False(t, ok)
}
