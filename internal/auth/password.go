// CREDENTIAL HASHING
//
// WHY ARGON2ID?
// Argon2id is memory-hard: every guess costs the attacker megabytes of RAM as
// well as CPU time, which takes away most of the advantage of GPUs and ASICs.
// bcrypt only costs CPU.
//
// Every hash is self-describing (PHC string format):
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//	          ^    ^       ^   ^
//	          |    |       |   parallelism (lanes)
//	          |    |       iterations
//	          |    memory in KiB
//	          argon2 version
//
// Salt and key are unpadded standard base64. Because the parameters travel
// with the hash, Verify always re-derives with the parameters the hash was
// made with, and the configured parameters can be raised at any time.
//
// LEGACY HASHES:
// The first revision of the application stored bcrypt hashes ($2a$/$2b$/$2y$).
// Verify still accepts them and NeedsRehash reports true, so the account
// service swaps in an Argon2id hash on the next successful login.

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const argon2Prefix = "$argon2id$v=19$"

var errMalformedHash = errors.New("auth: malformed password hash")

// Argon2Params are the tunable Argon2id parameters. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option with
// 64 MiB of memory.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	switch {
	case p.Memory < 8*1024:
		return errors.New("auth: argon2 memory must be at least 8192 KiB")
	case p.Iterations == 0:
		return errors.New("auth: argon2 iterations must be greater than zero")
	case p.Parallelism == 0:
		return errors.New("auth: argon2 parallelism must be greater than zero")
	case p.SaltLength < 8:
		return errors.New("auth: argon2 salt must be at least 8 bytes")
	case p.KeyLength < 16:
		return errors.New("auth: argon2 key must be at least 16 bytes")
	}
	return nil
}

// PasswordHasher hashes and verifies account passwords.
//
// It's a struct (not free functions) so that tests can inject cheap
// parameters instead of 64 MiB per hash.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(params Argon2Params) (*PasswordHasher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &PasswordHasher{params: params}, nil
}

// Hash derives a new Argon2id hash with a fresh random salt, so hashing the
// same plaintext twice never gives the same string.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches hash.
//
// A malformed or unsupported hash is simply a mismatch: callers treat every
// false the same way, and the hash itself is never echoed back.
//
// TIMING SAFETY:
// The derived key is compared with subtle.ConstantTimeCompare, so the response
// time does not leak how many leading bytes matched.
func (h *PasswordHasher) Verify(hash, plaintext string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	}

	params, salt, want, err := decodeArgon2(hash)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether hash should be replaced by a fresh Hash: it is
// a legacy bcrypt hash, it cannot be decoded, or its parameters differ from
// the configured ones.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	params, _, _, err := decodeArgon2(hash)
	if err != nil {
		return true
	}
	return params != h.params
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

// decodeArgon2 splits a PHC string into its parameters, salt and key.
func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return Argon2Params{}, nil, nil, errMalformedHash
	}

	parts := strings.Split(rest, "$")
	if len(parts) != 3 {
		return Argon2Params{}, nil, nil, errMalformedHash
	}

	var p Argon2Params
	for _, kv := range strings.Split(parts[0], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Argon2Params{}, nil, nil, errMalformedHash
		}
		var bits int
		switch k {
		case "m", "t":
			bits = 32
		case "p":
			bits = 8
		default:
			return Argon2Params{}, nil, nil, errMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return Argon2Params{}, nil, nil, errMalformedHash
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			p.Parallelism = uint8(n)
		}
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return Argon2Params{}, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return Argon2Params{}, nil, nil, errMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	// Reject parameters a hostile hash could use to burn memory or CPU.
	if p.validate() != nil || p.Memory > 4*1024*1024 || p.Iterations > 64 {
		return Argon2Params{}, nil, nil, errMalformedHash
	}

	return p, salt, key, nil
}
