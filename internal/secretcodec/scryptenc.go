// Package secretcodec implements the reference deployment's at-rest secret
// encryption format: an scrypt-derived key pair protecting an AES-256-CTR
// ciphertext with an appended HMAC-SHA256 signature (SPEC_FULL.md §4.5.4).
// Grounded byte-for-byte on
// original_source/src/scrypt/scryptenc/scryptenc.c's scryptenc_buf/
// scryptdec_buf: a 96-byte header ("scrypt\x00", logN, r, p, 32-byte salt,
// 16-byte header checksum, 32-byte header signature), the ciphertext, and a
// trailing 32-byte HMAC-SHA256 over header‖ciphertext. Total overhead is 128
// bytes, matching the original's documented "inbuflen + 128".
package secretcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	headerLen   = 96
	footerLen   = 32
	overhead    = headerLen + footerLen
	saltLen     = 32
	dkLen       = 64 // first 32 bytes: AES-256 key, last 32: HMAC key
	magicPrefix = "scrypt\x00"
)

// ErrMalformed is returned when decrypting a blob that is too short or does
// not start with the expected magic bytes.
var ErrMalformed = errors.New("secretcodec: malformed ciphertext")

// ErrAuthenticationFailed is returned when the header checksum, header
// signature, or footer HMAC does not verify — either the password is wrong
// or the ciphertext has been tampered with.
var ErrAuthenticationFailed = errors.New("secretcodec: authentication failed")

// Params are the scrypt cost parameters. Defaults match common
// interactive-use scrypt recommendations; callers protecting
// high-value secrets at rest should raise LogN.
type Params struct {
	LogN uint8 // N = 1 << LogN
	R    uint32
	P    uint32
}

// DefaultParams returns the cost parameters used when none are supplied.
func DefaultParams() Params {
	return Params{LogN: 14, R: 8, P: 1}
}

// Encrypt encrypts plaintext under password using params, returning a blob
// exactly len(plaintext)+128 bytes long. plaintext is not modified; callers
// that hold sensitive plaintext should zero their own copy after this call
// returns (see Zero).
func Encrypt(plaintext, password []byte, params Params) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("secretcodec: reading salt: %w", err)
	}

	dk, err := deriveKey(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer Zero(dk)

	header := make([]byte, headerLen)
	copy(header[0:7], magicPrefix)
	header[7] = params.LogN
	binary.BigEndian.PutUint32(header[8:12], params.R)
	binary.BigEndian.PutUint32(header[12:16], params.P)
	copy(header[16:48], salt)

	checksum := sha256.Sum256(header[0:48])
	copy(header[48:64], checksum[:16])

	sig := hmac.New(sha256.New, dk[32:64])
	sig.Write(header[0:64])
	copy(header[64:96], sig.Sum(nil))

	out := make([]byte, headerLen+len(plaintext)+footerLen)
	copy(out[0:headerLen], header)

	stream := cipher.NewCTR(mustAESCipher(dk[0:32]), make([]byte, aes.BlockSize))
	stream.XORKeyStream(out[headerLen:headerLen+len(plaintext)], plaintext)

	footer := hmac.New(sha256.New, dk[32:64])
	footer.Write(out[0 : headerLen+len(plaintext)])
	copy(out[headerLen+len(plaintext):], footer.Sum(nil))

	return out, nil
}

// Decrypt reverses Encrypt given the same password, verifying every
// authentication tag before returning plaintext. The returned slice is
// freshly allocated; callers should Zero it when done.
func Decrypt(blob, password []byte) ([]byte, error) {
	if len(blob) < overhead || string(blob[0:7]) != magicPrefix {
		return nil, ErrMalformed
	}

	header := blob[0:headerLen]
	params := Params{
		LogN: header[7],
		R:    binary.BigEndian.Uint32(header[8:12]),
		P:    binary.BigEndian.Uint32(header[12:16]),
	}
	salt := header[16:48]

	checksum := sha256.Sum256(header[0:48])
	if subtle.ConstantTimeCompare(checksum[:16], header[48:64]) != 1 {
		return nil, ErrAuthenticationFailed
	}

	dk, err := deriveKey(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer Zero(dk)

	sig := hmac.New(sha256.New, dk[32:64])
	sig.Write(header[0:64])
	if subtle.ConstantTimeCompare(sig.Sum(nil), header[64:96]) != 1 {
		return nil, ErrAuthenticationFailed
	}

	footer := hmac.New(sha256.New, dk[32:64])
	footer.Write(blob[0 : len(blob)-footerLen])
	if subtle.ConstantTimeCompare(footer.Sum(nil), blob[len(blob)-footerLen:]) != 1 {
		return nil, ErrAuthenticationFailed
	}

	ciphertext := blob[headerLen : len(blob)-footerLen]
	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(mustAESCipher(dk[0:32]), make([]byte, aes.BlockSize))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// Zero overwrites b's contents with zero bytes, matching the reference's
// insecure_memzero calls on derived key material and plaintext buffers
// before they go out of scope.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func deriveKey(password, salt []byte, params Params) ([]byte, error) {
	n := uint64(1) << params.LogN
	dk, err := scrypt.Key(password, salt, int(n), int(params.R), int(params.P), dkLen)
	if err != nil {
		return nil, fmt.Errorf("secretcodec: deriving key: %w", err)
	}
	return dk, nil
}

func mustAESCipher(key []byte) cipher.Block {
	block, err := aes.NewCipher(key)
	if err != nil {
		// key is always exactly 32 bytes (AES-256), carved from a
		// fixed-length scrypt output; this can only fail on programmer error.
		panic(err)
	}
	return block
}
