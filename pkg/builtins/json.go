package builtins

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// jsonModule mirrors the teacher's jsonParse/jsonGenerate pair, generalized
// to produce/consume corvid Values instead of Go interface{} trees wrapped
// in strings.
func jsonModule() *Module {
	m := newModule("json")

	m.add("dumps", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 1 {
			return nil, errArgCount("json.dumps", 1, len(args))
		}
		native, err := toGoValue(c, args[0])
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(native)
		if err != nil {
			return nil, errors.Wrap(err, "json.dumps")
		}
		return object.NewStr(string(b)), nil
	})

	m.add("loads", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, ok := args[0].(*object.Str)
		if !ok {
			return nil, typeErr("json.loads() expects a str")
		}
		var v interface{}
		if err := json.Unmarshal([]byte(s.Val), &v); err != nil {
			return nil, errors.Wrap(err, "json.loads")
		}
		return fromGoValue(v), nil
	})

	return m
}

func toGoValue(c object.Caller, v object.Value) (interface{}, error) {
	switch t := v.(type) {
	case *object.NoneType:
		return nil, nil
	case *object.Bool:
		return t.Val, nil
	case *object.Int:
		return t.V.String(), nil // arbitrary precision, preserved as a numeric string's digits
	case *object.Float:
		return t.Val, nil
	case *object.Str:
		return t.Val, nil
	case *object.List:
		out := make([]interface{}, len(t.Elems))
		for i, e := range t.Elems {
			gv, err := toGoValue(c, e)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case *object.Dict:
		out := make(map[string]interface{})
		for _, k := range t.Keys() {
			ks, ok := k.(*object.Str)
			if !ok {
				return nil, typeErr("json.dumps() requires str dict keys")
			}
			val, _, err := t.Get(c, k)
			if err != nil {
				return nil, err
			}
			gv, err := toGoValue(c, val)
			if err != nil {
				return nil, err
			}
			out[ks.Val] = gv
		}
		return out, nil
	default:
		return nil, typeErr("object of type %s is not JSON serializable", v.Class().Name)
	}
}

func fromGoValue(v interface{}) object.Value {
	switch t := v.(type) {
	case nil:
		return object.None
	case bool:
		return object.FromBool(t)
	case float64:
		return object.NewFloat(t)
	case string:
		return object.NewStr(t)
	case []interface{}:
		out := make([]object.Value, len(t))
		for i, e := range t {
			out[i] = fromGoValue(e)
		}
		return object.NewList(out)
	case map[string]interface{}:
		d := object.NewDict()
		for k, e := range t {
			d.Set(noopCaller{}, object.StrIntern(k), fromGoValue(e))
		}
		return d
	default:
		return object.None
	}
}
