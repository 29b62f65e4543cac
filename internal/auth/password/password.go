// Package password hashes back office passwords with Argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinLength is the shortest password accepted for a new account.
const MinLength = 10

// Params are the Argon2id cost settings encoded into every hash.
type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams is used for all new hashes.
var DefaultParams = Params{Memory: 64 * 1024, Time: 1, Threads: 4, KeyLen: 32, SaltLen: 16}

var ErrMalformedHash = errors.New("malformed password hash")

// Hash encodes password in the PHC string format.
func Hash(password string) (string, error) {
	return hashWith(password, DefaultParams)
}

func hashWith(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Malformed hashes never match.
func Verify(password, encoded string) bool {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false
	}
	check := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, check) == 1
}

// NeedsRehash reports whether encoded was produced with weaker settings than
// DefaultParams.
func NeedsRehash(encoded string) bool {
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.Memory < DefaultParams.Memory || p.Time < DefaultParams.Time || p.Threads < DefaultParams.Threads
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var (
		version int
		p       Params
		salt64  string
		key64   string
	)
	// Sscanf stops %s at whitespace only, so the $-separated tail is split by hand.
	var head, tail string
	idx := lastDollars(encoded)
	if idx < 0 {
		return p, nil, nil, ErrMalformedHash
	}
	head, tail = encoded[:idx], encoded[idx+1:]
	if _, err := fmt.Sscanf(head, "$argon2id$v=%d$m=%d,t=%d,p=%d", &version, &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}
	for i := 0; i < len(tail); i++ {
		if tail[i] == '$' {
			salt64, key64 = tail[:i], tail[i+1:]
			break
		}
	}
	if salt64 == "" || key64 == "" {
		return p, nil, nil, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(salt64)
	if err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(key64)
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	return p, salt, key, nil
}

// lastDollars returns the index of the '$' that precedes the salt.
func lastDollars(s string) int {
	seen := 0
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '$' {
			seen++
			if seen == 2 {
				return i
			}
		}
	}
	return -1
}
