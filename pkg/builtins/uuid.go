package builtins

import (
	"github.com/google/uuid"

	"github.com/kristofer/corvid/pkg/object"
)

// uuidModule exposes google/uuid's v4 and v5 generators as corvid strings.
func uuidModule() *Module {
	m := newModule("uuid")

	m.add("uuid4", func(c object.Caller, args []object.Value) (object.Value, error) {
		return object.NewStr(uuid.New().String()), nil
	})

	m.add("uuid5", func(c object.Caller, args []object.Value) (object.Value, error) {
		ns, name, err := twoStrings(args, "uuid.uuid5")
		if err != nil {
			return nil, err
		}
		id, perr := uuid.Parse(ns)
		if perr != nil {
			return nil, typeErr("uuid.uuid5: invalid namespace: %s", perr.Error())
		}
		return object.NewStr(uuid.NewSHA1(id, []byte(name)).String()), nil
	})

	return m
}
