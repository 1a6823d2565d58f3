package builtins

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// cryptoModule mirrors the teacher's sha256Hash/sha512Hash/md5Hash/
// base64Encode/base64Decode/aesEncrypt/aesDecrypt/aesGenerateKey group.
func cryptoModule() *Module {
	m := newModule("crypto")

	m.add("sha256", hashFunc(sha256.Sum256))
	m.add("sha512", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "crypto.sha512")
		if err != nil {
			return nil, err
		}
		sum := sha512.Sum512([]byte(s))
		return object.NewStr(hexString(sum[:])), nil
	})
	m.add("md5", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "crypto.md5")
		if err != nil {
			return nil, err
		}
		sum := md5.Sum([]byte(s))
		return object.NewStr(hexString(sum[:])), nil
	})

	m.add("base64_encode", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "crypto.base64_encode")
		if err != nil {
			return nil, err
		}
		return object.NewStr(base64.StdEncoding.EncodeToString([]byte(s))), nil
	})
	m.add("base64_decode", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "crypto.base64_decode")
		if err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.base64_decode")
		}
		return object.NewStr(string(b)), nil
	})

	m.add("aes_generate_key", func(c object.Caller, args []object.Value) (object.Value, error) {
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, errors.Wrap(err, "crypto.aes_generate_key")
		}
		return object.NewStr(base64.StdEncoding.EncodeToString(key)), nil
	})

	m.add("aes_encrypt", func(c object.Caller, args []object.Value) (object.Value, error) {
		data, keyB64, err := twoStrings(args, "crypto.aes_encrypt")
		if err != nil {
			return nil, err
		}
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_encrypt: bad key")
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_encrypt")
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_encrypt")
		}
		nonce := make([]byte, gcm.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, errors.Wrap(err, "crypto.aes_encrypt")
		}
		ciphertext := gcm.Seal(nonce, nonce, []byte(data), nil)
		return object.NewStr(base64.StdEncoding.EncodeToString(ciphertext)), nil
	})

	m.add("aes_decrypt", func(c object.Caller, args []object.Value) (object.Value, error) {
		dataB64, keyB64, err := twoStrings(args, "crypto.aes_decrypt")
		if err != nil {
			return nil, err
		}
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_decrypt: bad key")
		}
		data, err := base64.StdEncoding.DecodeString(dataB64)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_decrypt: bad ciphertext")
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_decrypt")
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_decrypt")
		}
		nonceSize := gcm.NonceSize()
		if len(data) < nonceSize {
			return nil, errors.New("crypto.aes_decrypt: ciphertext too short")
		}
		nonce, ciphertext := data[:nonceSize], data[nonceSize:]
		plain, err := gcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, errors.Wrap(err, "crypto.aes_decrypt")
		}
		return object.NewStr(string(plain)), nil
	})

	return m
}

func hashFunc(sum func([]byte) [32]byte) object.NativeFunc {
	return func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := oneString(args, "crypto.sha256")
		if err != nil {
			return nil, err
		}
		h := sum([]byte(s))
		return object.NewStr(hexString(h[:])), nil
	}
}

func oneString(args []object.Value, name string) (string, error) {
	if len(args) != 1 {
		return "", errArgCount(name, 1, len(args))
	}
	s, ok := args[0].(*object.Str)
	if !ok {
		return "", typeErr("%s() expects a str argument", name)
	}
	return s.Val, nil
}

const hexDigits = "0123456789abcdef"

func hexString(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}
