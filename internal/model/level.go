package model

// Level describes a referrer rank derived from the paid referral count.
type Level struct {
	Number int
	Title  string
}

// levelSteps is ordered by ascending threshold. A user's level is the
// highest step whose threshold their paid referral count reaches.
var levelSteps = []struct {
	threshold int
	level     Level
}{
	{0, Level{0, "New"}},
	{1, Level{1, "Beginner"}},
	{8, Level{2, "Intermediate"}},
	{15, Level{3, "Advanced"}},
	{25, Level{4, "Pro"}},
	{50, Level{5, "Elite"}},
}

// LevelFor returns the level for a paid referral count.
// The mapping is a pure step function: 0 -> New, 1-7 -> Beginner,
// 8-14 -> Intermediate, 15-24 -> Advanced, 25-49 -> Pro, >=50 -> Elite.
func LevelFor(paidReferrals int) Level {
	level := levelSteps[0].level
	for _, step := range levelSteps {
		if paidReferrals >= step.threshold {
			level = step.level
		}
	}
	return level
}

// NextLevelAt returns the paid referral count needed for the next level,
// or 0 if the user is already at the top level.
func NextLevelAt(paidReferrals int) int {
	for _, step := range levelSteps {
		if paidReferrals < step.threshold {
			return step.threshold
		}
	}
	return 0
}
