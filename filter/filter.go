// Package filter evaluates configured notification filter expressions
// against incoming chat messages. Compiled programs are cached, the same
// expressions are evaluated for every appended message.
package filter

import (
	"strconv"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tcriess/lightspeed-chat-client/globals"
)

const programCacheSize = 128

var programs *lru.Cache

func init() {
	programs, _ = lru.New(programCacheSize)
}

// AsInt parses the value as an int, 0 on error
func AsInt(v string) int64 {
	val, _ := strconv.ParseInt(v, 0, 64)
	return val
}

// AsFloat parses the value as a float64, 0.0 on error
func AsFloat(v string) float64 {
	val, _ := strconv.ParseFloat(v, 64)
	return val
}

// Program compiles the expression against the filter Env, serving repeat
// expressions from the cache.
func Program(expression string) (*vm.Program, error) {
	if cached, ok := programs.Get(expression); ok {
		return cached.(*vm.Program), nil
	}
	prog, err := expr.Compile(expression, expr.Env(Env{}))
	if err != nil {
		return nil, err
	}
	programs.Add(expression, prog)
	return prog, nil
}

// Match runs the compiled program, any evaluation error only logs and counts
// as no match.
func Match(prog *vm.Program, env Env) bool {
	if prog == nil {
		return false
	}
	env.AsInt = AsInt
	env.AsFloat = AsFloat
	res, err := expr.Run(prog, env)
	if err != nil {
		globals.AppLogger.Error("could not run filter", "error", err)
		return false
	}
	if bRes, ok := res.(bool); ok && bRes {
		return true
	}
	return false
}
