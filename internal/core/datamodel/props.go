package datamodel

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/zeusync/scenecore/internal/core/systems/physics"
)

// decodeProps decodes a loosely typed property map, as produced by YAML or
// Lua, into a struct with mapstructure tags. Unknown keys are errors.
func decodeProps(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.DecodeHookFuncType(vec3Hook),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(props); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	return nil
}

var vec3Type = reflect.TypeOf(physics.Vec3{})

// vec3Hook accepts [x, y, z] lists for Vec3 fields.
func vec3Hook(_, to reflect.Type, data any) (any, error) {
	if to != vec3Type {
		return data, nil
	}
	var xyz []float64
	switch v := data.(type) {
	case physics.Vec3:
		return v, nil
	case []float64:
		xyz = v
	case []any:
		if err := mapstructure.WeakDecode(v, &xyz); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	if len(xyz) != 3 {
		return nil, fmt.Errorf("vector needs 3 components, got %d", len(xyz))
	}
	return physics.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func vecList(v physics.Vec3) []float64 {
	return []float64{v.X, v.Y, v.Z}
}
