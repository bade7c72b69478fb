package domain

import "testing"

func TestDifficulty_IsValid(t *testing.T) {
	for _, d := range []Difficulty{DifficultyDifficult, DifficultyMedium, DifficultyEasy} {
		if !d.IsValid() {
			t.Errorf("%s should be valid", d)
		}
	}
	if Difficulty("Hard").IsValid() {
		t.Error("Hard should not be valid")
	}
	if Difficulty("").IsValid() {
		t.Error("empty difficulty should not be valid")
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want Difficulty
		ok   bool
	}{
		{"easy", DifficultyEasy, true},
		{"Easy", DifficultyEasy, true},
		{" MEDIUM ", DifficultyMedium, true},
		{"difficult", DifficultyDifficult, true},
		{"hard", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDifficulty(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDifficulty(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
