package builtins

import "github.com/pkg/errors"

func typeErr(format string, args ...interface{}) error {
	return errors.Errorf("TypeError: "+format, args...)
}

func errArgCount(name string, want, got int) error {
	return errors.Errorf("TypeError: %s() takes %d argument(s), got %d", name, want, got)
}
