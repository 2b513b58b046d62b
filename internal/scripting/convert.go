package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// toLua converts property values produced by PropertyCodec.
func toLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []float64:
		t := L.CreateTable(len(v), 0)
		for _, f := range v {
			t.Append(lua.LNumber(f))
		}
		return t
	case []int:
		t := L.CreateTable(len(v), 0)
		for _, i := range v {
			t.Append(lua.LNumber(i))
		}
		return t
	case [][]float64:
		t := L.CreateTable(len(v), 0)
		for _, row := range v {
			t.Append(toLua(L, row))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(v))
		for k, val := range v {
			t.RawSetString(k, toLua(L, val))
		}
		return t
	}
	return lua.LNil
}

// fromLua converts a Lua value to the loose form PropertyCodec accepts.
// Tables with a sequence part become lists, other tables maps.
func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(v.RawGetInt(i)))
			}
			return out
		}
		out := map[string]any{}
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = fromLua(val)
		})
		return out
	}
	return nil
}
