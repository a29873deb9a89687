package main

import (
	"strings"
	"unicode/utf8"
)

// minAnswerLength is the usual floor for fuzzy matches: a submission shorter
// than this is never accepted by containment alone. When the expected answer
// is itself shorter, the floor drops to the expected answer's length so that
// legitimately short answers remain guessable.
const minAnswerLength = 3

// formatRaw reduces a string to its comparable core: lowercase with every
// non-alphanumeric rune removed.
func formatRaw(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// checkAnswer decides whether a submitted answer matches the expected one.
//
// Both sides are normalized (lowercased, stripped, spelled-out numbers
// rewritten as digits) and compared for exact equality, shared acronym group
// membership, and finally substring containment in either direction. The
// containment path is rejected when the submission simply parrots text
// already visible in the category title or clue, unless the expected answer
// legitimately appears in the category title itself.
func checkAnswer(categoryName, clue, expected, actual string) bool {
	rawCategoryName := formatRaw(categoryName)
	rawClue := formatRaw(clue)
	rawExpected := formatRaw(wordsToNumbers(expected))
	rawActual := formatRaw(wordsToNumbers(actual))

	if rawActual == "" {
		return false
	}

	if rawActual == rawExpected {
		return true
	}

	for _, group := range acronymGroups {
		if group[rawExpected] && group[rawActual] {
			return true
		}
	}

	lengthLimit := minAnswerLength
	if len(rawExpected) < minAnswerLength {
		lengthLimit = len(rawExpected)
	}
	validLength := len(rawActual) >= lengthLimit

	containsAnswer := strings.Contains(rawExpected, rawActual) || strings.Contains(rawActual, rawExpected)

	cheated := (!strings.Contains(rawCategoryName, rawExpected) && strings.Contains(rawCategoryName, rawActual)) ||
		(rawClue != "" && strings.Contains(rawClue, rawActual))

	return validLength && containsAnswer && !cheated
}

// checkPlayerName validates a signature submission, returning a user-facing
// error message, or an empty string if the name is acceptable.
func checkPlayerName(playerName string) string {
	length := utf8.RuneCountInString(playerName)

	switch {
	case length == 0:
		return "Your name is too short, please try again!"
	case length > 20:
		return "Your name is too long, please try again!"
	}

	return ""
}
