package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/scenecore/internal/core/instance"
)

const instanceType = "Instance"

// push wraps n as an Instance userdata, or nil.
func push(L *lua.LState, n *instance.Instance) lua.LValue {
	if n == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = n
	L.SetMetatable(ud, L.GetTypeMetatable(instanceType))
	return ud
}

func checkInstance(L *lua.LState, idx int) *instance.Instance {
	ud := L.CheckUserData(idx)
	if n, ok := ud.Value.(*instance.Instance); ok {
		return n
	}
	L.ArgError(idx, "Instance expected")
	return nil
}

func optInstance(L *lua.LState, idx int) *instance.Instance {
	if L.Get(idx) == lua.LNil {
		return nil
	}
	return checkInstance(L, idx)
}

func registerInstanceType(L *lua.LState, tree *instance.Context) {
	mt := L.NewTypeMetatable(instanceType)
	methods := instanceMethods(tree)

	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		n := checkInstance(L, 1)
		key := L.CheckString(2)
		if fn, ok := methods[key]; ok {
			L.Push(L.NewFunction(fn))
			return 1
		}
		L.Push(index(L, n, key))
		return 1
	}))
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		n := checkInstance(L, 1)
		key := L.CheckString(2)
		if err := assign(n, key, L.Get(3)); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(checkInstance(L, 1).FullName()))
		return 1
	}))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(checkInstance(L, 1) == checkInstance(L, 2)))
		return 1
	}))

	// Instance.new(class [, parent])
	ctor := L.NewTable()
	L.SetField(ctor, "new", L.NewFunction(func(L *lua.LState) int {
		n, err := tree.New(L.CheckString(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		if parent := optInstance(L, 2); parent != nil {
			if err := n.SetParent(parent); err != nil {
				_ = n.Destroy()
				L.RaiseError("%s", err.Error())
			}
		}
		L.Push(push(L, n))
		return 1
	}))
	L.SetGlobal(instanceType, ctor)
}

// index resolves n.key: built-in properties, kind properties, then children.
func index(L *lua.LState, n *instance.Instance, key string) lua.LValue {
	switch key {
	case "Name":
		return lua.LString(n.Name())
	case "ClassName":
		return lua.LString(n.ClassName())
	case "Parent":
		return push(L, n.Parent())
	case "Archivable":
		return lua.LBool(n.Archivable())
	}
	if pc, ok := instance.As[instance.PropertyCodec](n); ok {
		if v, ok := pc.Properties()[key]; ok {
			return toLua(L, v)
		}
	}
	return push(L, n.FindFirstChild(key, false))
}

func assign(n *instance.Instance, key string, v lua.LValue) error {
	switch key {
	case "Name":
		n.SetName(lua.LVAsString(v))
		return nil
	case "Archivable":
		n.SetArchivable(lua.LVAsBool(v))
		return nil
	case "Parent":
		var parent *instance.Instance
		if ud, ok := v.(*lua.LUserData); ok {
			parent, _ = ud.Value.(*instance.Instance)
		}
		return n.SetParent(parent)
	}
	pc, ok := instance.As[instance.PropertyCodec](n)
	if !ok {
		return &unknownProperty{class: n.ClassName(), key: key}
	}
	if _, ok := pc.Properties()[key]; !ok {
		return &unknownProperty{class: n.ClassName(), key: key}
	}
	return pc.SetProperties(map[string]any{key: fromLua(v)})
}

type unknownProperty struct {
	class, key string
}

func (e *unknownProperty) Error() string {
	return e.key + " is not a valid member of " + e.class
}

func instanceMethods(tree *instance.Context) map[string]lua.LGFunction {
	raise := func(L *lua.LState, err error) {
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
	}
	list := func(L *lua.LState, nodes []*instance.Instance) *lua.LTable {
		t := L.CreateTable(len(nodes), 0)
		for _, n := range nodes {
			t.Append(push(L, n))
		}
		return t
	}

	return map[string]lua.LGFunction{
		"FindFirstChild": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			L.Push(push(L, n.FindFirstChild(L.CheckString(2), L.OptBool(3, false))))
			return 1
		},
		"FindFirstChildOfClass": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			L.Push(push(L, n.FindFirstChildOfClass(L.CheckString(2))))
			return 1
		},
		"FindFirstAncestor": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			L.Push(push(L, n.FindFirstAncestor(L.CheckString(2))))
			return 1
		},
		// WaitForChild(name [, seconds]) suspends the calling script only.
		"WaitForChild": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			name := L.CheckString(2)
			timeout := time.Duration(float64(L.OptNumber(3, 0)) * float64(time.Second))
			child, _ := n.WaitForChild(L.Context(), name, timeout)
			L.Push(push(L, child))
			return 1
		},
		"GetChildren": func(L *lua.LState) int {
			L.Push(list(L, checkInstance(L, 1).GetChildren()))
			return 1
		},
		"GetDescendants": func(L *lua.LState) int {
			L.Push(list(L, checkInstance(L, 1).GetDescendants()))
			return 1
		},
		"GetFullName": func(L *lua.LState) int {
			L.Push(lua.LString(checkInstance(L, 1).FullName()))
			return 1
		},
		"IsA": func(L *lua.LState) int {
			L.Push(lua.LBool(checkInstance(L, 1).IsA(L.CheckString(2))))
			return 1
		},
		"IsDescendantOf": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			L.Push(lua.LBool(n.IsDescendantOf(optInstance(L, 2))))
			return 1
		},
		"IsAncestorOf": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			L.Push(lua.LBool(n.IsAncestorOf(optInstance(L, 2))))
			return 1
		},
		"SetParent": func(L *lua.LState) int {
			n := checkInstance(L, 1)
			raise(L, n.SetParent(optInstance(L, 2)))
			return 0
		},
		"SetName": func(L *lua.LState) int {
			checkInstance(L, 1).SetName(L.CheckString(2))
			return 0
		},
		"Destroy": func(L *lua.LState) int {
			raise(L, checkInstance(L, 1).Destroy())
			return 0
		},
		"ClearAllChildren": func(L *lua.LState) int {
			raise(L, checkInstance(L, 1).ClearAllChildren())
			return 0
		},
		"GetService": func(L *lua.LState) int {
			checkInstance(L, 1)
			svc, err := tree.GetOrCreate(L.CheckString(2))
			raise(L, err)
			L.Push(push(L, svc))
			return 1
		},
	}
}
