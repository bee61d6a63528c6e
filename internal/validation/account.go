package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern определяет допустимый формат username, как у бэкенда:
// латинские буквы, цифры и символы @ . + - _
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@.+\-_]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 150
	// MinPasswordLen минимальная длина пароля при регистрации
	MinPasswordLen = 8
)

// ValidateUsername проверяет username перед регистрацией
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers and @/./+/-/_")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
// Логин пароль не проверяет: это делает сервер.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len([]rune(password)) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}
