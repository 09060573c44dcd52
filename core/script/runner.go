package script

import (
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"
)

// Run executes Lua source in a fresh state and returns everything it printed.
// Syntax and runtime errors are appended to the output as a traceback; Run never fails.
func Run(source string) (output string) {
	var buff strings.Builder
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(&buff, "Traceback (most recent call last):\n%v\n", r)
		}
		output = buff.String()
	}()

	l := lua.NewState()
	openLibraries(l, &buff)

	if err := lua.LoadString(l, source); err != nil {
		fmt.Fprintf(&buff, "Traceback (most recent call last):\n%s\n", errorText(l, err))
		return
	}
	if err := l.ProtectedCall(0, lua.MultipleReturns, 0); err != nil {
		fmt.Fprintf(&buff, "Traceback (most recent call last):\n%s\n", errorText(l, err))
	}
	return
}

// openLibraries opens the libraries that cannot reach the host process.
// There is no os library and io only writes to buff.
func openLibraries(l *lua.State, buff *strings.Builder) {
	libs := []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "bit32", Function: lua.Bit32Open},
		{Name: "math", Function: lua.MathOpen},
	}
	for _, lib := range libs {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range []string{"dofile", "loadfile"} {
		l.PushNil()
		l.SetGlobal(name)
	}
	l.Register("print", printTo(buff))

	// io.stdout:write(...) and io.write(...) both return io.stdout
	l.NewTable() // io
	l.NewTable() // io.stdout
	l.PushValue(-1)
	l.PushGoClosure(writeTo(buff, 2), 1)
	l.SetField(-2, "write")
	l.PushValue(-1)
	l.SetField(-3, "stdout")
	l.PushGoClosure(writeTo(buff, 1), 1)
	l.SetField(-2, "write")
	l.SetGlobal("io")
}

// writeTo mimics file:write, writing its arguments from index first on without separators.
func writeTo(buff *strings.Builder, first int) lua.Function {
	return func(l *lua.State) int {
		for i := first; i <= l.Top(); i++ {
			buff.WriteString(lua.CheckString(l, i))
		}
		l.PushValue(lua.UpValueIndex(1))
		return 1
	}
}

// printTo mimics the Lua print function, writing tab separated values and a newline to buff.
func printTo(buff *strings.Builder) lua.Function {
	return func(l *lua.State) int {
		n := l.Top()
		for i := 1; i <= n; i++ {
			s, ok := lua.ToStringMeta(l, i)
			l.Pop(1) // ToStringMeta pushes the converted value
			if !ok {
				lua.Errorf(l, "'tostring' must return a string to 'print'")
			}
			if i > 1 {
				buff.WriteString("\t")
			}
			buff.WriteString(s)
		}
		buff.WriteString("\n")
		return 0
	}
}

func errorText(l *lua.State, err error) string {
	if msg, ok := l.ToString(-1); ok && msg != "" {
		return msg
	}
	return err.Error()
}
