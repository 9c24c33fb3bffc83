package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"", KindChromedp, false},
		{"chromedp", KindChromedp, false},
		{"ChromeDP", KindChromedp, false},
		{" rod ", KindRod, false},
		{"selenium", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown browser driver")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, DefaultUserAgent, opts.UserAgent)
	assert.Equal(t, 1920, opts.WindowWidth)
	assert.Equal(t, 1080, opts.WindowHeight)
	assert.Equal(t, 30*time.Second, opts.StartTimeout)
}

func TestOptions_DefaultsFillZeroValues(t *testing.T) {
	opts := Options{Headless: false, ExecPath: "/usr/bin/chromium"}
	opts.defaults()

	assert.False(t, opts.Headless, "headless is never overridden")
	assert.Equal(t, "/usr/bin/chromium", opts.ExecPath)
	assert.Equal(t, DefaultUserAgent, opts.UserAgent)
	assert.Equal(t, 1920, opts.WindowWidth)
	assert.Equal(t, 30*time.Second, opts.StartTimeout)
}

func TestClickNthScript(t *testing.T) {
	script := clickNthScript(`a[href*="x"]`, 2)

	assert.Contains(t, script, `document.querySelectorAll("a[href*=\"x\"]")`)
	assert.Contains(t, script, "els[2].click()")
	assert.Contains(t, script, "if (2 >= els.length) return false")
}

func TestCountScript(t *testing.T) {
	assert.Equal(t, `document.querySelectorAll(".pv-top-card").length`, countScript(".pv-top-card"))
}

func TestError_FormatAndUnwrap(t *testing.T) {
	err := opError("click", "#submit", ErrNotFound)
	require.Error(t, err)

	assert.Equal(t, `browser click "#submit": element not found`, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))

	var browserErr *Error
	require.ErrorAs(t, err, &browserErr)
	assert.Equal(t, "click", browserErr.Op)

	assert.Equal(t, "browser snapshot: browser closed", opError("snapshot", "", ErrClosed).Error())
	assert.NoError(t, opError("click", "#submit", nil))
}
