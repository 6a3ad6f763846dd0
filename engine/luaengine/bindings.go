package luaengine

import (
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/script"
)

const (
	assetsTypeName  = "scriptexec.assets"
	loggerTypeName  = "scriptexec.logger"
	consoleTypeName = "scriptexec.console"
)

func registerTypes(state *lua.State) {
	registerType(state, assetsTypeName, assetsMethods)
	registerType(state, loggerTypeName, loggerMethods)
	registerType(state, consoleTypeName, consoleMethods)
}

func registerType(state *lua.State, name string, methods []lua.RegistryFunction) {
	lua.NewMetaTable(state, name)
	state.NewTable()
	lua.SetFunctions(state, methods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

// registerAssetsNamespace exposes the assets package as the global table
// "assets".
func registerAssetsNamespace(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "new", Function: assetsNew},
	}, 0)
	state.SetGlobal("assets")
}

// redirectOutput routes print and io.write to the console. io.stdout and
// io.output are removed so nothing reaches the process stdout, which may
// carry a protocol stream.
func redirectOutput(state *lua.State, console *script.Console) {
	state.Register("print", func(state *lua.State) int {
		console.WriteLine(joinArgs(state, "\t"))
		return 0
	})

	state.Global("io")
	if state.IsTable(-1) {
		state.PushGoFunction(func(state *lua.State) int {
			console.Write(joinArgs(state, ""))
			return 0
		})
		state.SetField(-2, "write")
		for _, name := range []string{"stdout", "output"} {
			state.PushNil()
			state.SetField(-2, name)
		}
	}
	state.Pop(1)
}

func joinArgs(state *lua.State, sep string) string {
	n := state.Top()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, script.Render(luaToGo(state, i)))
	}
	return strings.Join(parts, sep)
}

func pushAssets(state *lua.State, am *assets.Manager) {
	state.PushUserData(am)
	lua.SetMetaTableNamed(state, assetsTypeName)
}

func assetsNew(state *lua.State) int {
	pushAssets(state, assets.NewManager())
	return 1
}

var assetsMethods = []lua.RegistryFunction{
	{Name: "Count", Function: assetsCount},
	{Name: "Files", Function: assetsFiles},
	{Name: "LoadFile", Function: assetsLoadFile},
	{Name: "LoadFolder", Function: assetsLoadFolder},
	{Name: "Clear", Function: assetsClear},
}

func checkAssets(state *lua.State) *assets.Manager {
	ud := lua.CheckUserData(state, 1, assetsTypeName)
	if am, ok := ud.(*assets.Manager); ok && am != nil {
		return am
	}
	lua.ArgumentError(state, 1, "asset manager expected")
	return nil
}

func assetsCount(state *lua.State) int {
	state.PushInteger(checkAssets(state).Count())
	return 1
}

func assetsFiles(state *lua.State) int {
	files := checkAssets(state).Files()
	state.CreateTable(len(files), 0)
	for i, f := range files {
		state.PushString(f)
		state.RawSetInt(-2, i+1)
	}
	return 1
}

func assetsLoadFile(state *lua.State) int {
	am := checkAssets(state)
	path := lua.CheckString(state, 2)
	if err := am.LoadFiles(path); err != nil {
		state.PushNil()
		state.PushString(err.Error())
		return 2
	}
	state.PushBoolean(true)
	return 1
}

func assetsLoadFolder(state *lua.State) int {
	am := checkAssets(state)
	dir := lua.CheckString(state, 2)
	n, err := am.LoadFolder(dir)
	if err != nil {
		state.PushNil()
		state.PushString(err.Error())
		return 2
	}
	state.PushInteger(n)
	return 1
}

func assetsClear(state *lua.State) int {
	checkAssets(state).Clear()
	return 0
}

var loggerMethods = []lua.RegistryFunction{
	{Name: "Debug", Function: loggerCall(script.Logger.Debug)},
	{Name: "Info", Function: loggerCall(script.Logger.Info)},
	{Name: "Warn", Function: loggerCall(script.Logger.Warn)},
	{Name: "Error", Function: loggerCall(script.Logger.Error)},
}

func loggerCall(method func(script.Logger, string, ...any)) lua.Function {
	return func(state *lua.State) int {
		ud := lua.CheckUserData(state, 1, loggerTypeName)
		logger, ok := ud.(script.Logger)
		if !ok || logger == nil {
			lua.ArgumentError(state, 1, "logger expected")
			return 0
		}
		method(logger, script.Render(luaToGo(state, 2)))
		return 0
	}
}

var consoleMethods = []lua.RegistryFunction{
	{Name: "WriteLine", Function: consoleCall((*script.Console).WriteLine)},
	{Name: "Write", Function: consoleCall((*script.Console).Write)},
}

func consoleCall(method func(*script.Console, any)) lua.Function {
	return func(state *lua.State) int {
		ud := lua.CheckUserData(state, 1, consoleTypeName)
		console, ok := ud.(*script.Console)
		if !ok || console == nil {
			lua.ArgumentError(state, 1, "console expected")
			return 0
		}
		method(console, luaToGo(state, 2))
		return 0
	}
}
