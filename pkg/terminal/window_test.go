package terminal

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowScroll(t *testing.T) {
	var w Window
	n := 5

	for rep := 0; rep < 4; rep++ {
		w.Down(n)
	}
	assert.Equal(t, Window{Top: 2, Cursor: 2}, w)

	w.Down(n)
	assert.Equal(t, Window{Top: 2, Cursor: 2}, w, "bottom is sticky")

	for rep := 0; rep < 2; rep++ {
		w.Up(n)
	}
	assert.Equal(t, Window{Top: 2, Cursor: 0}, w)

	w.Up(n)
	assert.Equal(t, Window{Top: 1, Cursor: 0}, w)

	i, ok := w.Selected(n)
	require.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestWindowShortList(t *testing.T) {
	var w Window
	w.Down(2)
	w.Down(2)
	w.Down(2)
	assert.Equal(t, Window{Top: 0, Cursor: 1}, w)

	_, ok := w.Selected(0)
	assert.False(t, ok)
	assert.Equal(t, Window{}, w)
}

func TestWindowClampAfterShrink(t *testing.T) {
	w := Window{Top: 4, Cursor: 2}
	w.Clamp(4)
	assert.Equal(t, Window{Top: 1, Cursor: 2}, w)

	w.Clamp(1)
	assert.Equal(t, Window{Top: 0, Cursor: 0}, w)
}

func TestWindowInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n <= 8; n++ {
		var w Window
		for step := 0; step < 200; step++ {
			if rng.Intn(2) == 0 {
				w.Up(n)
			} else {
				w.Down(n)
			}

			assert.GreaterOrEqual(t, w.Top, 0)
			if n >= WindowRows {
				assert.LessOrEqual(t, w.Top, n-WindowRows)
			} else {
				assert.Equal(t, 0, w.Top)
			}

			i, ok := w.Selected(n)
			if n == 0 {
				assert.False(t, ok)
				continue
			}
			require.True(t, ok)
			assert.Less(t, i, n, "n=%d step=%d", n, step)
		}
	}
}
