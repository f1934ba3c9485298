// Package scoring turns issue sets into conformance scores. Every function is
// pure, deterministic and independent of issue order.
package scoring

import (
	"github.com/xkilldash9x/uiprobe/internal/a11y"
)

const (
	MaxScore = 100.0
	MinScore = 0.0
)

// Per-level penalty applied for every issue tagged with that level.
var LevelWeights = map[a11y.Level]float64{
	a11y.LevelA:   10,
	a11y.LevelAA:  5,
	a11y.LevelAAA: 2,
}

// Overall penalties.
const (
	CriticalPenalty = 20.0
	SeriousPenalty  = 10.0
	PerIssuePenalty = 2.0
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// LevelScore scores the issues tagged with one conformance level.
func LevelScore(issues []a11y.Issue, level a11y.Level) float64 {
	penalty := 0.0
	for _, is := range issues {
		if is.Level == level {
			penalty += LevelWeights[level]
		}
	}
	return Clamp(MaxScore - penalty)
}

// LevelScores scores every conformance level.
func LevelScores(issues []a11y.Issue) map[a11y.Level]float64 {
	out := make(map[a11y.Level]float64, len(a11y.Levels))
	for _, lvl := range a11y.Levels {
		out[lvl] = LevelScore(issues, lvl)
	}
	return out
}

// Overall is 100 - 20*critical - 10*serious - 2*total, clamped.
func Overall(issues []a11y.Issue) float64 {
	c := a11y.Count(issues)
	penalty := CriticalPenalty*float64(c.Critical) +
		SeriousPenalty*float64(c.Serious) +
		PerIssuePenalty*float64(c.Total)
	return Clamp(MaxScore - penalty)
}

// Grade maps a score onto a letter for report headlines.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	}
	return "F"
}
