package domain

import (
	"fmt"
	"strings"
)

// Dimension is one of the four independent personality axes.
type Dimension string

const (
	DimensionEI Dimension = "EI"
	DimensionSN Dimension = "SN"
	DimensionTF Dimension = "TF"
	DimensionJP Dimension = "JP"
)

// Dimensions lists the axes in the order their letters compose a type code.
var Dimensions = []Dimension{DimensionEI, DimensionSN, DimensionTF, DimensionJP}

func ParseDimension(raw string) (Dimension, error) {
	d := Dimension(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "")))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown dimension %q", ErrInvalidInput, raw)
	}
	return d, nil
}

func (d Dimension) Valid() bool {
	switch d {
	case DimensionEI, DimensionSN, DimensionTF, DimensionJP:
		return true
	}
	return false
}

// FirstPole es la letra que suma con puntaje neto positivo (E, S, T, J).
func (d Dimension) FirstPole() string {
	if !d.Valid() {
		return ""
	}
	return string(d[0])
}

// SecondPole es la letra del puntaje neto negativo (I, N, F, P).
func (d Dimension) SecondPole() string {
	if !d.Valid() {
		return ""
	}
	return string(d[1])
}

// Option is the side of a binary-choice question a respondent picked.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

func ParseOption(raw string) (Option, error) {
	switch o := Option(strings.ToUpper(strings.TrimSpace(raw))); o {
	case OptionA, OptionB:
		return o, nil
	}
	return "", fmt.Errorf("%w: selected option must be A or B, got %q", ErrInvalidInput, raw)
}

// PreferenceStrength is the self-reported intensity attached to an answer.
type PreferenceStrength string

const (
	StrengthWeak     PreferenceStrength = "weak"
	StrengthModerate PreferenceStrength = "moderate"
	StrengthStrong   PreferenceStrength = "strong"
)

// ParsePreferenceStrength defaults an empty value to moderate.
func ParsePreferenceStrength(raw string) (PreferenceStrength, error) {
	switch s := PreferenceStrength(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrengthModerate, nil
	case StrengthWeak, StrengthModerate, StrengthStrong:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown preference strength %q", ErrInvalidInput, raw)
}

// Clarity categorises how decisively a dimension was resolved.
type Clarity string

const (
	ClaritySlight    Clarity = "slight"
	ClarityModerate  Clarity = "moderate"
	ClarityClear     Clarity = "clear"
	ClarityVeryClear Clarity = "very_clear"
)
