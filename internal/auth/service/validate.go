package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxNameLength     = 50
	maxSlugLength     = 50
	maxProjectNameLen = 100
	maxDescriptionLen = 500
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// normalizeEmail trims and lowercases an address and checks its shape.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "email is required")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return "", invalid("email", "invalid email address")
	}
	return email, nil
}

// validatePassword enforces the password policy: length plus one lowercase,
// one uppercase, one digit and one other character.
func validatePassword(field, password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid(field, "password must be at least 8 characters")
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	switch {
	case !lower:
		return invalid(field, "password must contain at least one lowercase letter")
	case !upper:
		return invalid(field, "password must contain at least one uppercase letter")
	case !digit:
		return invalid(field, "password must contain at least one number")
	case !special:
		return invalid(field, "password must contain at least one special character")
	}
	return nil
}

func validateName(field, value string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return invalid(field, field+" is required")
	}
	if n > maxNameLength {
		return invalid(field, field+" must be at most 50 characters")
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return invalid("projectSlug", "project slug is required")
	}
	if len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return invalid("projectSlug", "slug may only contain lowercase letters, digits and hyphens (max 50)")
	}
	return nil
}

func validateProjectName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return invalid("projectName", "project name is required")
	}
	if n > maxProjectNameLen {
		return invalid("projectName", "project name must be at most 100 characters")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return invalid("description", "description must be at most 500 characters")
	}
	for _, r := range desc {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return invalid("description", "description contains control characters")
		}
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, field+" is required")
	}
	return nil
}
