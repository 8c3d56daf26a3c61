// Package crypto хеширует пароли пользователей backend.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch возвращается, если пароль не совпадает с хешем
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword хеширует пароль bcrypt с cost по умолчанию
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет пароль по bcrypt хешу.
// Несовпадение возвращается как ErrPasswordMismatch, прочие ошибки (битый хеш) оборачиваются.
func VerifyPassword(password, hash string) error {
	if hash == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}

	return nil
}

// dummyHash сравнивается при неизвестном пользователе, чтобы время ответа не выдавало его отсутствие
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("esps-dummy-password"), bcrypt.DefaultCost)

// BurnVerify выполняет сравнение с фиктивным хешем
func BurnVerify(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
