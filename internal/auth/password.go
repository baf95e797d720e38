package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2id parameters (OWASP 2025 recommendation).
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// Bounds on stored Argon2id parameters. Rows outside them are rejected
// before hashing: p=0 panics in argon2 and a huge m= allocates without limit.
const (
	argonMaxTime    = 10
	argonMaxMemory  = 256 * 1024 // KiB
	argonMaxThreads = 16
	argonMinKeyLen  = 16
)

// Hash algorithm names accepted in configuration.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// legacyPlainPrefix marks rows imported from a system that stored passwords
// in clear text. They verify once and are re-hashed on the next login.
const legacyPlainPrefix = "plain:"

const (
	// maxPasswordBytes bounds hashing cost for hostile input.
	maxPasswordBytes = 256
	// bcryptMaxBytes is the input limit of the bcrypt algorithm.
	bcryptMaxBytes = 72
)

// Hasher creates password hashes with the configured algorithm.
// The zero value hashes with Argon2id.
type Hasher struct {
	Algorithm  string
	BcryptCost int
}

// Hash hashes a plaintext password with the configured algorithm.
func (h Hasher) Hash(password string) (string, error) {
	if h.Algorithm == AlgorithmBcrypt {
		if len(password) > bcryptMaxBytes {
			return "", fmt.Errorf("%w: bcrypt accepts at most %d bytes", ErrWeakPassword, bcryptMaxBytes)
		}
		cost := h.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(b), nil
	}
	return HashPassword(password)
}

// NeedsRehash reports whether a stored hash should be replaced with one
// produced by this Hasher: a different algorithm, weaker parameters or a
// legacy plaintext row.
func (h Hasher) NeedsRehash(encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, legacyPlainPrefix):
		return true
	case isBcryptHash(encoded):
		if h.Algorithm != AlgorithmBcrypt {
			return true
		}
		cost, err := bcrypt.Cost([]byte(encoded))
		want := h.BcryptCost
		if want == 0 {
			want = bcrypt.DefaultCost
		}
		return err != nil || cost < want
	default:
		if h.Algorithm == AlgorithmBcrypt {
			return true
		}
		_, hash, p, err := decodePHC(encoded)
		if err != nil {
			return true
		}
		return p.time < argonTime || p.memory < argonMemory || len(hash) < argonKeyLen
	}
}

// HashPassword hashes a plaintext password using Argon2id and returns it
// in PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a plaintext password against a stored hash in any
// supported format: Argon2id PHC, bcrypt ($2a$, $2b$, $2y$) or legacy plain.
func VerifyPassword(password, encodedHash string) (bool, error) {
	if len(password) > maxPasswordBytes {
		return false, nil
	}

	switch {
	case strings.HasPrefix(encodedHash, legacyPlainPrefix):
		stored := strings.TrimPrefix(encodedHash, legacyPlainPrefix)
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, nil

	case isBcryptHash(encodedHash):
		// PHP-style $2y$ hashes are identical to $2b$.
		normalised := encodedHash
		if strings.HasPrefix(normalised, "$2y$") {
			normalised = "$2b$" + normalised[4:]
		}
		err := bcrypt.CompareHashAndPassword([]byte(normalised), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bcrypt compare: %w", err)
		}
		return true, nil
	}

	salt, hash, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// ValidatePassword enforces the password policy: at least minLength
// characters, at most 256 bytes, and at least one letter and one digit.
func ValidatePassword(password string, minLength int) error {
	if minLength < 8 { //nolint:mnd // policy floor
		minLength = 8
	}
	if len([]rune(password)) < minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordBytes)
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return fmt.Errorf("%w: must contain a letter and a digit", ErrWeakPassword)
	}
	return nil
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// decodePHC parses an Argon2id PHC string format into its components.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != AlgorithmArgon2id {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	if params.threads == 0 || params.threads > argonMaxThreads ||
		params.time == 0 || params.time > argonMaxTime ||
		params.memory < 8*uint32(params.threads) || params.memory > argonMaxMemory {
		return nil, nil, params, fmt.Errorf("argon2id parameters out of range: %s", parts[3])
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	if len(hash) < argonMinKeyLen {
		return nil, nil, params, fmt.Errorf("argon2id hash too short")
	}
	return salt, hash, params, nil
}
