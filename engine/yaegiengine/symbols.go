package yaegiengine

import (
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/jonwraymond/scriptexec/assets"
	"github.com/jonwraymond/scriptexec/script"
)

// AssetsImportPath is the import path under which scripts see the assets
// package.
const AssetsImportPath = "github.com/jonwraymond/scriptexec/assets"

// hostImportPath carries the per-run globals into the interpreter.
const hostImportPath = "scriptexec/host"

// stdlibPackages are the standard-library packages pre-imported into every
// fresh interpreter. Keys follow yaegi's "importPath/pkgName" convention.
var stdlibPackages = []string{
	"bytes/bytes",
	"encoding/json/json",
	"errors/errors",
	"fmt/fmt",
	"math/math",
	"os/os",
	"path/filepath/filepath",
	"regexp/regexp",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
	"time/time",
	"unicode/utf8/utf8",
}

// assetsExports exposes the assets package to interpreted code.
var assetsExports = interp.Exports{
	AssetsImportPath + "/assets": {
		"Manager":    reflect.ValueOf((*assets.Manager)(nil)),
		"NewManager": reflect.ValueOf(assets.NewManager),
		"ErrNotFile": reflect.ValueOf(&assets.ErrNotFile).Elem(),
	},
}

// scriptExports exposes the console and logger types so scripts can name
// them.
var scriptExports = interp.Exports{
	"github.com/jonwraymond/scriptexec/script/script": {
		"Console":         reflect.ValueOf((*script.Console)(nil)),
		"Logger":          reflect.ValueOf((*script.Logger)(nil)),
		"Render":          reflect.ValueOf(script.Render),
		"NullPlaceholder": reflect.ValueOf(script.NullPlaceholder),
	},
}

func stdlibExports() interp.Exports {
	out := interp.Exports{}
	for _, key := range stdlibPackages {
		if syms, ok := stdlib.Symbols[key]; ok {
			out[key] = syms
		}
	}
	return out
}

// hostExports binds the globals of one run. Variables are exported as
// addressable values so the interpreter reads the current binding.
func hostExports(g *script.Globals) interp.Exports {
	return interp.Exports{
		hostImportPath + "/host": {
			"Assets":  reflect.ValueOf(&g.Assets).Elem(),
			"Logger":  reflect.ValueOf(&g.Logger).Elem(),
			"Console": reflect.ValueOf(&g.Console).Elem(),
		},
	}
}
