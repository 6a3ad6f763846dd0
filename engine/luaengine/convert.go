package luaengine

import (
	"math"

	"github.com/Shopify/go-lua"
)

// luaToGo converts the value at index into nil, bool, int, float64, string,
// []any, map[string]any or the Go value behind a userdata. Functions and
// threads convert to nil, as does a table nested inside itself.
func luaToGo(state *lua.State, index int) any {
	c := converter{state: state, open: map[any]struct{}{}}
	return c.value(index)
}

// converter walks nested tables. open holds the tables on the current path
// so a cycle ends in nil instead of recursing forever.
type converter struct {
	state *lua.State
	open  map[any]struct{}
}

func (c *converter) value(index int) any {
	state := c.state
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return c.table(index)
	case lua.TypeUserData:
		return state.ToUserData(index)
	default:
		return nil
	}
}

// table returns a slice for sequences and a map for everything else.
func (c *converter) table(index int) any {
	state := c.state
	index = state.AbsIndex(index)

	key := state.ToValue(index)
	if _, ok := c.open[key]; ok {
		return nil
	}
	// Each level holds a key, a value and a copied key for tableToMap.
	if !state.CheckStack(3) {
		return nil
	}
	c.open[key] = struct{}{}
	defer delete(c.open, key)

	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		count++
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if count == 0 {
		return map[string]any{}
	}
	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, c.value(-1))
			state.Pop(1)
		}
		return result
	}
	return c.tableToMap(index)
}

// tableToMap keeps string and integer keys; integers are rendered in decimal.
func (c *converter) tableToMap(index int) map[string]any {
	state := c.state
	output := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		switch state.TypeOf(-2) {
		case lua.TypeString:
			key, _ := state.ToString(-2)
			output[key] = c.value(-1)
		case lua.TypeNumber:
			// Push a copy: ToString would convert the key in place and
			// break Next.
			state.PushValue(-2)
			key, _ := state.ToString(-1)
			state.Pop(1)
			output[key] = c.value(-1)
		}
		state.Pop(1)
	}
	return output
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) <= 1<<53 {
		return int(value)
	}
	return value
}
