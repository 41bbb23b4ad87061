package domain

import (
	"fmt"
	"strings"
)

// TypeCodes enumerates the 16 canonical codes.
var TypeCodes = []string{
	"ISTJ", "ISFJ", "INFJ", "INTJ",
	"ISTP", "ISFP", "INFP", "INTP",
	"ESTP", "ESFP", "ENFP", "ENTP",
	"ESTJ", "ESFJ", "ENFJ", "ENTJ",
}

// PersonalityType is static, localized reference data for one code.
type PersonalityType struct {
	Code        string `json:"code"`
	Language    string `json:"language"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Strengths   string `json:"strengths,omitempty"`
	Challenges  string `json:"challenges,omitempty"`
}

// ParseTypeCode normalizes a code and checks each letter against its dimension.
func ParseTypeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != len(Dimensions) {
		return "", fmt.Errorf("%w: type code %q must have %d letters", ErrInvalidInput, raw, len(Dimensions))
	}
	for i, d := range Dimensions {
		letter := string(code[i])
		if letter != d.FirstPole() && letter != d.SecondPole() {
			return "", fmt.Errorf("%w: letter %q is not valid for dimension %s", ErrInvalidInput, letter, d)
		}
	}
	return code, nil
}
