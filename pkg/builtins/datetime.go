package builtins

import (
	"time"

	"github.com/kristofer/corvid/pkg/object"
)

// datetimeModule mirrors the teacher's dateNow/dateFormat/dateParse/
// timeYear..timeSecond family, operating on Unix-second timestamps as the
// teacher's did.
func datetimeModule() *Module {
	m := newModule("datetime")

	m.add("now", func(c object.Caller, args []object.Value) (object.Value, error) {
		return object.NewInt(time.Now().Unix()), nil
	})

	m.add("format", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 2 {
			return nil, errArgCount("datetime.format", 2, len(args))
		}
		ts, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("datetime.format() expects (timestamp, layout)")
		}
		layout, ok := args[1].(*object.Str)
		if !ok {
			return nil, typeErr("datetime.format() expects (timestamp, layout)")
		}
		t := time.Unix(ts.V.Int64(), 0).UTC()
		return object.NewStr(t.Format(goLayout(layout.Val))), nil
	})

	m.add("parse", func(c object.Caller, args []object.Value) (object.Value, error) {
		layout, text, err := twoStrings(args, "datetime.parse")
		if err != nil {
			return nil, err
		}
		t, perr := time.Parse(goLayout(layout), text)
		if perr != nil {
			return nil, typeErr("datetime.parse: %s", perr.Error())
		}
		return object.NewInt(t.Unix()), nil
	})

	for name, field := range map[string]func(time.Time) int{
		"year":   func(t time.Time) int { return t.Year() },
		"month":  func(t time.Time) int { return int(t.Month()) },
		"day":    func(t time.Time) int { return t.Day() },
		"hour":   func(t time.Time) int { return t.Hour() },
		"minute": func(t time.Time) int { return t.Minute() },
		"second": func(t time.Time) int { return t.Second() },
	} {
		f := field
		m.add(name, func(c object.Caller, args []object.Value) (object.Value, error) {
			ts, ok := args[0].(*object.Int)
			if !ok {
				return nil, typeErr("datetime.%s() expects an int timestamp", name)
			}
			t := time.Unix(ts.V.Int64(), 0).UTC()
			return object.NewInt(int64(f(t))), nil
		})
	}

	return m
}

// goLayout maps the small set of named formats the teacher recognized
// (iso8601, date, time, datetime) onto Go's reference-time layouts; any
// other string passes through unchanged, letting scripts supply a raw Go
// layout directly.
func goLayout(name string) string {
	switch name {
	case "iso8601", "ISO8601", "rfc3339", "RFC3339":
		return time.RFC3339
	case "date":
		return "2006-01-02"
	case "time":
		return "15:04:05"
	case "datetime":
		return "2006-01-02 15:04:05"
	default:
		return name
	}
}
