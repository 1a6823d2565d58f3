package builtins

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// compressionModule mirrors the teacher's zipCompress/zipDecompress/
// gzipCompress/gzipDecompress quartet (zlib stands in for the teacher's
// "zip" naming, which actually wrapped Go's compress/flate-family zlib).
func compressionModule() *Module {
	m := newModule("compression")

	m.add("gzip_compress", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "compression.gzip_compress")
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write([]byte(s)); err != nil {
			return nil, errors.Wrap(err, "compression.gzip_compress")
		}
		if err := gw.Close(); err != nil {
			return nil, errors.Wrap(err, "compression.gzip_compress")
		}
		return object.NewBytes(buf.Bytes()), nil
	})

	m.add("gzip_decompress", func(c object.Caller, args []object.Value) (object.Value, error) {
		b, ok := args[0].(*object.Bytes)
		if !ok {
			return nil, typeErr("compression.gzip_decompress() expects bytes")
		}
		gr, err := gzip.NewReader(bytes.NewReader(b.Val))
		if err != nil {
			return nil, errors.Wrap(err, "compression.gzip_decompress")
		}
		defer gr.Close()
		out, err := io.ReadAll(gr)
		if err != nil {
			return nil, errors.Wrap(err, "compression.gzip_decompress")
		}
		return object.NewStr(string(out)), nil
	})

	m.add("zlib_compress", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "compression.zlib_compress")
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write([]byte(s)); err != nil {
			return nil, errors.Wrap(err, "compression.zlib_compress")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(err, "compression.zlib_compress")
		}
		return object.NewBytes(buf.Bytes()), nil
	})

	m.add("zlib_decompress", func(c object.Caller, args []object.Value) (object.Value, error) {
		b, ok := args[0].(*object.Bytes)
		if !ok {
			return nil, typeErr("compression.zlib_decompress() expects bytes")
		}
		zr, err := zlib.NewReader(bytes.NewReader(b.Val))
		if err != nil {
			return nil, errors.Wrap(err, "compression.zlib_decompress")
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrap(err, "compression.zlib_decompress")
		}
		return object.NewStr(string(out)), nil
	})

	return m
}
