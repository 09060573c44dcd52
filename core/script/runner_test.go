package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "empty", source: "", want: ""},
		{name: "print", source: `print("hello")`, want: "hello\n"},
		{name: "print many", source: `print("a", 1, true, nil)`, want: "a\t1\ttrue\tnil\n"},
		{name: "loop", source: "for i = 1, 3 do print(i * 2) end", want: "2\n4\n6\n"},
		{name: "string lib", source: `print(string.upper("academia"))`, want: "ACADEMIA\n"},
		{name: "io write", source: `io.write("a", 1) io.write("b\n")`, want: "a1b\n"},
		{name: "io stdout write", source: `io.stdout:write("x"):write("y") print("z")`, want: "xyz\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Run(tt.source))
		})
	}

	t.Run("syntax error", func(t *testing.T) {
		out := Run("print(")
		assert.True(t, strings.HasPrefix(out, "Traceback (most recent call last):\n"), out)
	})

	t.Run("runtime error keeps previous output", func(t *testing.T) {
		out := Run(`print("before") error("boom")`)
		assert.True(t, strings.HasPrefix(out, "before\nTraceback (most recent call last):\n"), out)
		assert.Contains(t, out, "boom")
	})

	t.Run("os exit does not stop the process", func(t *testing.T) {
		out := Run(`print("before") os.exit(3)`)
		assert.True(t, strings.HasPrefix(out, "before\nTraceback (most recent call last):\n"), out)
	})

	t.Run("no file access", func(t *testing.T) {
		out := Run(`dofile("/etc/passwd")`)
		assert.True(t, strings.HasPrefix(out, "Traceback (most recent call last):\n"), out)
	})
}
