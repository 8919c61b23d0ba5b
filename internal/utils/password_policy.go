// internal/utils/password_policy.go
package utils

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/marketua/marketplace-backend/internal/apperror"
)

const (
	MinPasswordLength       = 8
	maxSimilarity           = 0.7
	minSimilarityPartLength = 3
	passwordAttr            = "password"
)

//go:embed common_passwords.txt
var commonPasswordsRaw string

var (
	commonPasswords = loadCommonPasswords(commonPasswordsRaw)
	attributeSplit  = regexp.MustCompile(`\W+`)
)

func loadCommonPasswords(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(strings.ToLower(line)); line != "" {
			set[line] = struct{}{}
		}
	}
	return set
}

// ValidatePassword applies the password policy. userAttributes are the values
// (typically the email) the password must not resemble. All failing rules are
// reported together, bound to attr.
func ValidatePassword(password string, attr string, userAttributes ...string) error {
	if attr == "" {
		attr = passwordAttr
	}
	errs := apperror.Validation()

	if isTooSimilar(password, userAttributes) {
		errs.Add(apperror.CodePasswordTooSimilar, "The password is too similar to the email.", attr)
	}
	if len([]rune(password)) < MinPasswordLength {
		errs.Add(apperror.CodePasswordTooShort,
			"This password is too short. It must contain at least 8 characters.", attr)
	}
	if _, common := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; common {
		errs.Add(apperror.CodePasswordTooCommon, "This password is too common.", attr)
	}
	if isEntirelyNumeric(password) {
		errs.Add(apperror.CodePasswordEntirelyNumeric, "This password is entirely numeric.", attr)
	}

	return errs.OrNil()
}

func isEntirelyNumeric(password string) bool {
	if password == "" {
		return false
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isTooSimilar(password string, attributes []string) bool {
	lowered := strings.ToLower(password)
	for _, value := range attributes {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		parts := append([]string{value}, attributeSplit.Split(value, -1)...)
		for _, part := range parts {
			if len(part) < minSimilarityPartLength {
				continue
			}
			if similarity(lowered, part) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), counted in runes.
func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
