package script_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/scriptexec/script"
)

// echoEngine returns the source text upper-cased and keeps a counter as its
// evaluation context.
type echoEngine struct{}

func (echoEngine) Language() string { return "echo" }

func (echoEngine) Run(_ context.Context, s script.Script, _ script.Globals) (script.State, any, error) {
	return 1, strings.ToUpper(s.Code), nil
}

func (echoEngine) Continue(_ context.Context, state script.State, s script.Script) (script.State, any, error) {
	n, _ := state.(int)
	return n + 1, fmt.Sprintf("%d:%s", n+1, strings.ToUpper(s.Code)), nil
}

func ExampleManager() {
	m, err := script.NewManager(script.Config{Engine: echoEngine{}})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	ctx := context.Background()

	res := m.Continue(ctx, "too early")
	fmt.Println(res.Success, res.Error)

	res = m.RunFresh(ctx, "hello")
	fmt.Println(res.Success, res.Message, res.ReturnValue)

	res = m.Continue(ctx, "again")
	fmt.Println(res.Success, res.Message, res.ReturnValue)

	m.Reset()
	fmt.Println(m.HasSession())
	// Output:
	// false No previous script state to continue from
	// true Script executed successfully HELLO
	// true Script continued successfully 2:AGAIN
	// false
}
