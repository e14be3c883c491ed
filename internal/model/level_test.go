package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		paid   int
		number int
		title  string
	}{
		{0, 0, "New"},
		{1, 1, "Beginner"},
		{7, 1, "Beginner"},
		{8, 2, "Intermediate"},
		{14, 2, "Intermediate"},
		{15, 3, "Advanced"},
		{24, 3, "Advanced"},
		{25, 4, "Pro"},
		{49, 4, "Pro"},
		{50, 5, "Elite"},
		{200, 5, "Elite"},
	}

	for _, tc := range cases {
		level := LevelFor(tc.paid)
		assert.Equal(t, tc.number, level.Number, "paid=%d", tc.paid)
		assert.Equal(t, tc.title, level.Title, "paid=%d", tc.paid)
	}
}

// TestLevelForMonotonicProperty verifies that the level step function never
// decreases as the paid referral count grows.
func TestLevelForMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 1000).Draw(t, "a")
		b := rapid.IntRange(0, 1000).Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		if LevelFor(a).Number > LevelFor(b).Number {
			t.Fatalf("level decreased: LevelFor(%d)=%d > LevelFor(%d)=%d",
				a, LevelFor(a).Number, b, LevelFor(b).Number)
		}
	})
}

func TestNextLevelAt(t *testing.T) {
	assert.Equal(t, 1, NextLevelAt(0))
	assert.Equal(t, 8, NextLevelAt(3))
	assert.Equal(t, 50, NextLevelAt(25))
	assert.Equal(t, 0, NextLevelAt(50))
	assert.Equal(t, 0, NextLevelAt(120))
}
