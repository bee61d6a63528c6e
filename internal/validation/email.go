package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

// MaxSubjectLen совпадает с длиной поля subject на бэкенде
const MaxSubjectLen = 255

// ValidateEmail проверяет, что addr это один голый адрес вида user@domain
func ValidateEmail(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("email address cannot be empty")
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return fmt.Errorf("invalid email address %q", addr)
	}

	at := strings.LastIndex(addr, "@")
	if at <= 0 || !strings.Contains(addr[at+1:], ".") {
		return fmt.Errorf("invalid email address %q", addr)
	}

	return nil
}

// ValidateMessage проверяет письмо перед отправкой
func ValidateMessage(to, subject, body string) error {
	if err := ValidateEmail(to); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("subject cannot be empty")
	}

	if len(subject) > MaxSubjectLen {
		return fmt.Errorf("subject must not exceed %d characters", MaxSubjectLen)
	}

	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("body cannot be empty")
	}

	return nil
}
