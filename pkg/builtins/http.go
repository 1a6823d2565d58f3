package builtins

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// httpModule mirrors the teacher's httpGet/httpPost pair, generalized to
// return the response body as a str rather than requiring the caller to
// round-trip through a Go-specific encoding.
func httpModule() *Module {
	client := &http.Client{Timeout: 30 * time.Second}

	m := newModule("http")

	m.add("get", func(c object.Caller, args []object.Value) (object.Value, error) {
		url, err := oneString(args, "http.get")
		if err != nil {
			return nil, err
		}
		resp, err := client.Get(url)
		if err != nil {
			return nil, errors.Wrap(err, "http.get")
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "http.get")
		}
		return object.NewStr(string(body)), nil
	})

	m.add("post", func(c object.Caller, args []object.Value) (object.Value, error) {
		url, body, err := twoStrings(args, "http.post")
		if err != nil {
			return nil, err
		}
		resp, err := client.Post(url, "application/json", strings.NewReader(body))
		if err != nil {
			return nil, errors.Wrap(err, "http.post")
		}
		defer resp.Body.Close()
		out, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "http.post")
		}
		return object.NewStr(string(out)), nil
	})

	return m
}
