package builtins

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// regexModule mirrors the teacher's regexMatch/regexFindAll/regexReplace
// trio, grounded on the standard regexp package as the teacher's was.
func regexModule() *Module {
	m := newModule("regex")

	m.add("match", func(c object.Caller, args []object.Value) (object.Value, error) {
		pattern, text, err := twoStrings(args, "regex.match")
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "regex.match")
		}
		return object.FromBool(re.MatchString(text)), nil
	})

	m.add("find_all", func(c object.Caller, args []object.Value) (object.Value, error) {
		pattern, text, err := twoStrings(args, "regex.find_all")
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "regex.find_all")
		}
		matches := re.FindAllString(text, -1)
		out := make([]object.Value, len(matches))
		for i, s := range matches {
			out[i] = object.NewStr(s)
		}
		return object.NewList(out), nil
	})

	m.add("replace", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 3 {
			return nil, errArgCount("regex.replace", 3, len(args))
		}
		pattern, ok1 := args[0].(*object.Str)
		text, ok2 := args[1].(*object.Str)
		repl, ok3 := args[2].(*object.Str)
		if !ok1 || !ok2 || !ok3 {
			return nil, typeErr("regex.replace() expects (pattern, text, replacement) str")
		}
		re, err := regexp.Compile(pattern.Val)
		if err != nil {
			return nil, errors.Wrap(err, "regex.replace")
		}
		return object.NewStr(re.ReplaceAllString(text.Val, repl.Val)), nil
	})

	return m
}

func twoStrings(args []object.Value, name string) (string, string, error) {
	if len(args) != 2 {
		return "", "", errArgCount(name, 2, len(args))
	}
	a, ok1 := args[0].(*object.Str)
	b, ok2 := args[1].(*object.Str)
	if !ok1 || !ok2 {
		return "", "", typeErr("%s() expects two str arguments", name)
	}
	return a.Val, b.Val, nil
}
