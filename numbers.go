package main

import (
	"strconv"
	"strings"
	"unicode"
)

var unitWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int{
	"hundred": 100, "thousand": 1000, "million": 1000000,
}

func isNumberWord(w string) bool {
	if _, ok := unitWords[w]; ok {
		return true
	}
	if _, ok := tensWords[w]; ok {
		return true
	}
	_, ok := scaleWords[w]
	return ok
}

// wordsToNumbers rewrites spelled-out numbers as digits, so "seven" and "7"
// normalize identically. Consecutive number words form a single value
// ("twenty one" -> "21", "three hundred and five" -> "305"); everything else
// passes through untouched. Hyphens between number words act as spaces.
func wordsToNumbers(s string) string {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})

	var out []string
	i := 0
	for i < len(tokens) {
		word := strings.ToLower(tokens[i])

		if !isNumberWord(word) {
			out = append(out, tokens[i])
			i++
			continue
		}

		total, current := 0, 0
		for i < len(tokens) {
			word = strings.ToLower(tokens[i])

			// "and" is swallowed only inside a number phrase.
			if word == "and" && current > 0 && i+1 < len(tokens) && isNumberWord(strings.ToLower(tokens[i+1])) {
				i++
				continue
			}

			if n, ok := unitWords[word]; ok {
				current += n
			} else if n, ok := tensWords[word]; ok {
				current += n
			} else if scale, ok := scaleWords[word]; ok {
				if current == 0 {
					current = 1
				}
				if scale == 100 {
					current *= scale
				} else {
					total += current * scale
					current = 0
				}
			} else {
				break
			}
			i++
		}

		out = append(out, strconv.Itoa(total+current))
	}

	return strings.Join(out, " ")
}
