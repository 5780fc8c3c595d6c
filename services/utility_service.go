package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UtilityService provides text processing, normalization, and identity
// resolution utilities shared by the fetcher and the GMP sources.
type UtilityService struct{}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{}
}

// ResolveIPOKey derives the canonical identity for an IPO from the first
// non-empty of symbol, company name, and slug. When all three are empty
// a time-based placeholder is returned so the record still gets a key.
func (s *UtilityService) ResolveIPOKey(symbol, companyName, slug string) string {
	for _, candidate := range []string{symbol, companyName, slug} {
		if key := s.KeyFromText(candidate); key != "" {
			return key
		}
	}
	return fmt.Sprintf("ipo-%d", time.Now().Unix())
}

// KeyFromText converts free text into key form: trimmed, lowercased,
// spaces replaced with hyphens. Empty input yields an empty key.
func (s *UtilityService) KeyFromText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "-")
}

// NormalizeIPOName normalizes an IPO name for matching
// Removes common legal suffixes, special characters, converts to lowercase
func (s *UtilityService) NormalizeIPOName(name string) string {
	normalized := strings.ToLower(name)

	suffixes := []string{" ltd.", " ltd", " limited", " pvt.", " pvt", " private", " ipo"}
	for _, suffix := range suffixes {
		normalized = strings.TrimSuffix(normalized, suffix)
	}

	reg := regexp.MustCompile(`[^a-z0-9\s]`)
	normalized = reg.ReplaceAllString(normalized, "")

	return strings.TrimSpace(normalized)
}

// GenerateCompanyCode generates a key-form code from an IPO name
// Returns a URL-friendly slug (lowercase, hyphens instead of spaces, no special chars)
func (s *UtilityService) GenerateCompanyCode(name string) string {
	normalized := s.NormalizeIPOName(name)

	code := strings.ReplaceAll(normalized, " ", "-")

	reg := regexp.MustCompile(`-+`)
	code = reg.ReplaceAllString(code, "-")

	return strings.Trim(code, "-")
}

// NormalizeTextContent cleans and standardizes text content for consistent processing
func (s *UtilityService) NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}

	text = strings.TrimSpace(text)

	whitespaceRegex := regexp.MustCompile(`\s+`)
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ReplaceAll(text, "₹", "")
	text = strings.ReplaceAll(text, "Rs.", "")
	text = strings.ReplaceAll(text, "Rs ", "")

	return strings.TrimSpace(text)
}

// ParseCurrencyValue extracts a signed numeric value from currency text
// like "₹120", "Rs. 85.50", "-12" or "−4" (unicode minus). Thousands
// separators are tolerated. Returns nil when no number is present.
func (s *UtilityService) ParseCurrencyValue(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" || s.IsNotAvailable(text) {
		return nil
	}

	replacer := strings.NewReplacer(
		"₹", "",
		"Rs.", "",
		"INR", "",
		"+", "",
		"−", "-",
		"–", "-",
		"—", "-",
	)
	text = replacer.Replace(text)

	reg := regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)
	match := reg.FindString(text)
	if match == "" {
		return nil
	}

	match = strings.ReplaceAll(match, ",", "")
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}

	return &value
}

// ContainsAlphabetic reports whether the text has at least one ASCII letter
func (s *UtilityService) ContainsAlphabetic(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// IsNumericText reports whether the text is purely a number once commas
// are removed. Used to tell value cells apart from company name cells.
func (s *UtilityService) IsNumericText(text string) bool {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if text == "" {
		return false
	}

	reg := regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
	return reg.MatchString(text)
}

// NormalizeString normalizes empty strings to nil
// Treats empty or whitespace-only strings as nil
func (s *UtilityService) NormalizeString(str string) *string {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}
	return &str
}

// NormalizeSymbol normalizes a stock symbol to uppercase alphanumeric format
// Removes special characters and whitespace, converts to uppercase
func (s *UtilityService) NormalizeSymbol(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" || s.IsNotAvailable(text) {
		return nil
	}

	text = strings.ToUpper(text)

	reg := regexp.MustCompile(`[^A-Z0-9]`)
	text = reg.ReplaceAllString(text, "")

	if text == "" {
		return nil
	}

	return &text
}

// IsNotAvailable checks if a value indicates "not available"
// Detects placeholders like "TBA", "To Be Announced", "N/A", etc.
func (s *UtilityService) IsNotAvailable(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))

	notAvailableValues := []string{
		"tba",
		"to be announced",
		"to be decided",
		"tbd",
		"n/a",
		"na",
		"not available",
		"not applicable",
		"not disclosed",
		"awaited",
		"pending",
		"coming soon",
		"will be updated",
		"yet to be announced",
		"--",
		"-",
		"",
		"nil",
		"null",
	}

	for _, na := range notAvailableValues {
		if text == na {
			return true
		}
	}

	return false
}
