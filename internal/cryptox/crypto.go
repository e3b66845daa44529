// Package cryptox holds the server's credential primitives: salted argon2id
// PIN hashes and one-time enrollment codes.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. A 4-digit PIN has only 10^4 candidates, so the cost
// of each guess is what protects a leaked hash; the lockout protects the
// online path.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// CodeDigits is the length of a one-time enrollment code.
const CodeDigits = 6

var ErrMalformedHash = errors.New("malformed pin hash")

var b64 = base64.RawStdEncoding

// HashPin derives an argon2id hash of pin with a fresh random salt and
// encodes it in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func HashPin(pin string) (string, error) {
	salt, err := common.GenerateRandByteArray(saltLen)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	pinBytes := []byte(pin)
	defer common.WipeByteArray(pinBytes)

	key := argon2.IDKey(pinBytes, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// CheckPin reports whether pin matches encoded. Parameters are read back
// from the encoded string so hashes survive a change of defaults.
func CheckPin(encoded, pin string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrMalformedHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}

	pinBytes := []byte(pin)
	defer common.WipeByteArray(pinBytes)

	got := argon2.IDKey(pinBytes, salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random CodeDigits-digit decimal code,
// zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
