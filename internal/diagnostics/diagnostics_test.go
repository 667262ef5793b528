package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/depyler-lang/depyler/internal/position"
)

func TestRenderMarksOffendingText(t *testing.T) {
	src := "def f(x):\n    yield x\n"
	sf := position.NewSourceFile("f.py", src)
	span := position.NewSpan("f.py", 1, 4, 14, 1, 9, 19)

	out := Render(Unsupported(span, "yield", "yield is not supported"), sf)

	assert.Contains(t, out, "yield is not supported")
	assert.Contains(t, out, "\n      yield x\n")
	assert.Contains(t, out, "\n      ^^^^^")
}

func TestRenderWithoutSourceFallsBack(t *testing.T) {
	span := position.NewSpan("f.py", 0, 0, 0, 0, 3, 3)
	d := Lowering(span, "bad lowering")

	assert.Equal(t, d.Error(), Render(d, nil))

	// A span past the file also degrades to the bare message.
	sf := position.NewSourceFile("f.py", "x\n")
	far := position.NewSpan("f.py", 8, 0, 90, 8, 3, 93)
	assert.Equal(t, Lowering(far, "off the end").Error(), Render(Lowering(far, "off the end"), sf))
}
