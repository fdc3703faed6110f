package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"

	"vigil-irs/core/utils"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

type PasswordHash struct {
	Hash string
	Salt string
}

func HashPassword(password, pepper string) (PasswordHash, error) {
	saltBytes, err := utils.RandBytes(saltLen)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
	}
	salt := base64.RawStdEncoding.EncodeToString(saltBytes)
	return PasswordHash{Hash: derive(password, salt, pepper), Salt: salt}, nil
}

func MustHashPassword(password, pepper string) PasswordHash {
	ph, err := HashPassword(password, pepper)
	if err != nil {
		panic(err)
	}
	return ph
}

func VerifyPassword(password, salt, pepper, expectedHash string) bool {
	got := derive(password, salt, pepper)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHash)) == 1
}

func derive(password, salt, pepper string) string {
	key := argon2.IDKey([]byte(password+pepper), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}
