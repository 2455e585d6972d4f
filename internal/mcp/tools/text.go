package tools

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CharacterGuidance is returned when count_character receives anything but a single character.
const CharacterGuidance = "Please provide exactly one character to count."

// Uppercase converts text to upper case.
func Uppercase(text string) string {
	return strings.ToUpper(text)
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CountCharacter counts occurrences of a single character in text.
// ok is false when character is not exactly one code point.
func CountCharacter(text, character string, caseSensitive bool) (count int, ok bool) {
	if utf8.RuneCountInString(character) != 1 {
		return 0, false
	}

	return CountCharacters(text, character, caseSensitive), true
}

// CountCharacters counts non-overlapping occurrences of character in text.
func CountCharacters(text, character string, caseSensitive bool) int {
	if !caseSensitive {
		text = strings.ToLower(text)
		character = strings.ToLower(character)
	}

	return strings.Count(text, character)
}

// ReverseText reverses text code point by code point.
func ReverseText(text string) string {
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}

	return string(runes)
}

// Greet renders a greeting for name.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s!", name)
}

// Add sums two numbers.
func Add(a, b float64) float64 {
	return a + b
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
