// Package validation provides user-input validation for the search API.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/openrx/medsearch-api/interfaces"
)

const (
	maxQueryLength = 100
	maxQueryWords  = 6
	maxResultLimit = 100
)

// Pre-compiled regex patterns for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Query validation: alphanumeric + accented letters + safe punctuation
	queryRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'àâäéèêëïîôöùûüÿçÀÂÄÉÈÊËÏÎÔÖÙÛÜŸÇ]+$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	// strings.Contains is 5-10x faster than regex for these patterns
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// QueryValidatorImpl implements the interfaces.QueryValidator interface
type QueryValidatorImpl struct{}

// Compile-time check to ensure QueryValidatorImpl implements QueryValidator
var _ interfaces.QueryValidator = (*QueryValidatorImpl)(nil)

// NewQueryValidator creates a new query validator
func NewQueryValidator() interfaces.QueryValidator {
	return &QueryValidatorImpl{}
}

// ValidateQuery checks a raw search query for size, complexity, and
// dangerous content. Queries below the search minimum length are not
// rejected here; the orchestrator resolves them to an empty result.
func (v *QueryValidatorImpl) ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if len(query) > maxQueryLength {
		return fmt.Errorf("query too long: maximum %d characters", maxQueryLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	words := strings.Fields(query)
	if len(words) > maxQueryWords {
		return fmt.Errorf("query too complex: maximum %d words allowed", maxQueryWords)
	}

	lowerQuery := strings.ToLower(query)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerQuery, pattern) {
			return fmt.Errorf("query contains potentially dangerous content")
		}
	}

	if !queryRegex.MatchString(query) {
		return fmt.Errorf("query contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods, plus sign, and accented characters are allowed")
	}

	if hasExcessiveRepetition(query) {
		return fmt.Errorf("query contains excessive character repetition")
	}

	return nil
}

// ValidateLimit parses the limit query parameter. An empty value returns 0,
// which the orchestrator replaces with the configured default.
func (v *QueryValidatorImpl) ValidateLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return -1, fmt.Errorf("limit must be a number")
	}

	if limit < 1 || limit > maxResultLimit {
		return -1, fmt.Errorf("limit must be between 1 and %d", maxResultLimit)
	}

	return limit, nil
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func hasExcessiveRepetition(input string) bool {
	// Same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
