package entity

type Entry struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// Qualifies reports whether score earns a place on a board that currently holds top,
// sorted by descending score and capped at limit entries.
func Qualifies(top []Entry, score int64, limit int) bool {
	switch {
	case len(top) == 0:
		return true
	case score > 0 && len(top) < limit:
		return true
	default:
		return score > top[len(top)-1].Score
	}
}
