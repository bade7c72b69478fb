package domain

import "strings"

// Difficulty is the user's self-assessed rating of a review.
// The string values are stored verbatim in the history log.
type Difficulty string

const (
	DifficultyDifficult Difficulty = "Difficult"
	DifficultyMedium    Difficulty = "Medium"
	DifficultyEasy      Difficulty = "Easy"
)

func (d Difficulty) String() string { return string(d) }

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyDifficult, DifficultyMedium, DifficultyEasy:
		return true
	}
	return false
}

// ParseDifficulty matches a difficulty case-insensitively.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "difficult":
		return DifficultyDifficult, true
	case "medium":
		return DifficultyMedium, true
	case "easy":
		return DifficultyEasy, true
	}
	return "", false
}
