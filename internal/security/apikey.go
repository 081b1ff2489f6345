package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Issued secrets look like sk_<prefix>_<secret>. The prefix is a public
// lookup identifier stored alongside the hash; only the secret part feeds
// the argon2id digest.
const (
	secretScheme  = "sk"
	prefixBytes   = 8
	secretBytes   = 32
	secretParts   = 3
	partSeparator = "_"
)

var ErrMalformedSecret = errors.New("malformed secret")

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var defaultParams = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// GenerateSecret mints a fresh credential secret and returns the full
// plaintext together with its public prefix. The plaintext is shown to the
// caller once and never persisted.
func GenerateSecret() (plaintext string, prefix string, err error) {
	rawPrefix := make([]byte, prefixBytes)
	if _, err := rand.Read(rawPrefix); err != nil {
		return "", "", fmt.Errorf("generate prefix: %w", err)
	}
	rawSecret := make([]byte, secretBytes)
	if _, err := rand.Read(rawSecret); err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}

	prefix = hex.EncodeToString(rawPrefix)
	secret := base64.RawURLEncoding.EncodeToString(rawSecret)
	plaintext = strings.Join([]string{secretScheme, prefix, secret}, partSeparator)
	return plaintext, prefix, nil
}

// SplitSecret extracts the lookup prefix and the secret component from a
// presented plaintext. It is a plain string parse, independent of any stored
// state, so it leaks nothing about which credentials exist.
func SplitSecret(plaintext string) (prefix string, secret string, err error) {
	parts := strings.SplitN(plaintext, partSeparator, secretParts)
	if len(parts) != secretParts || parts[0] != secretScheme || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedSecret
	}
	return parts[1], parts[2], nil
}

func HashSecret(secret string) ([]byte, error) {
	return HashSecretWithParams(secret, defaultParams)
}

func HashSecretWithParams(secret string, params Argon2Params) ([]byte, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	encoded := base64.StdEncoding.EncodeToString(hash)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)

	result := fmt.Sprintf("$argon2id$v=19$t=%d,m=%d,p=%d$%s$%s",
		params.Time, params.Memory, params.Threads, encodedSalt, encoded)

	return []byte(result), nil
}

// VerifySecret recomputes the argon2id digest with the stored parameters and
// compares in constant time.
func VerifySecret(secret string, encodedHash []byte) (bool, error) {
	parts := strings.Split(string(encodedHash), "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false, errors.New("parse hash: malformed encoding")
	}

	var (
		time    uint32
		memory  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false, fmt.Errorf("parse hash params: %w", err)
	}
	saltB64, hashB64 := parts[4], parts[5]

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(hash)))

	if subtle.ConstantTimeCompare(hash, computed) == 1 {
		return true, nil
	}
	return false, nil
}
