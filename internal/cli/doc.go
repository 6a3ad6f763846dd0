// Package cli implements the scriptexec command line: run, eval, repl, serve
// and tools.
package cli
