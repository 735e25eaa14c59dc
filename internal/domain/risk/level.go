package risk

// Level is the severity bucket derived from a likelihood × impact score.
type Level string

const (
	LevelLow     Level = "LOW"
	LevelMedium  Level = "MEDIUM"
	LevelHigh    Level = "HIGH"
	LevelExtreme Level = "EXTREME"
)

// Score thresholds shared by the heatmap, trends and migration analysis.
const (
	ExtremeThreshold = 15
	HighThreshold    = 10
	MediumThreshold  = 5
)

// Levels lists every level from least to most severe.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelExtreme}

// LevelForScore classifies a score with the fixed thresholds.
func LevelForScore(score int) Level {
	switch {
	case score >= ExtremeThreshold:
		return LevelExtreme
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Rank orders levels: LOW=0 ... EXTREME=3, unknown=-1.
func (l Level) Rank() int {
	for i, lv := range Levels {
		if lv == l {
			return i
		}
	}
	return -1
}

// IsElevated reports HIGH or EXTREME.
func (l Level) IsElevated() bool {
	return l == LevelHigh || l == LevelExtreme
}

func (l Level) String() string {
	return string(l)
}

//Personal.AI order the ending
