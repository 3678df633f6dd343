package leaderboard

import "strings"

// DefaultGame is assumed when a submission or stored entry carries no game
// identifier. Historical documents predate the game field entirely.
const DefaultGame = "bottleflip"

// TimestampLayout formats created_at/updated_at values. The layout matches
// the ISO-8601 strings already present in deployed leaderboard documents, so
// existing files keep sorting and parsing correctly.
const TimestampLayout = "2006-01-02T15:04:05.000000"

const (
	minUsernameRunes = 2
	maxUsernameRunes = 20
	maxScore         = 1_000_000
	maxListed        = 50
)

// Entry is one persisted player record. JSON tags define the document format
// and must not change; deployed files depend on them.
type Entry struct {
	Username        string `json:"username"`
	Score           int    `json:"score"`
	Game            string `json:"game"`
	TotalFlips      int    `json:"total_flips"`
	SuccessfulFlips int    `json:"successful_flips"`
	LongestCombo    int    `json:"longest_combo"`
	GamesPlayed     int    `json:"games_played"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// game returns the entry's game key, defaulting legacy records.
func (e Entry) game() string {
	game := strings.ToLower(strings.TrimSpace(e.Game))
	if game == "" {
		return DefaultGame
	}
	return game
}

// Submission is the parsed, strongly-typed score submission accepted from the
// HTTP boundary.
type Submission struct {
	Username        string
	Score           int
	Game            string
	TotalFlips      int
	SuccessfulFlips int
	LongestCombo    int
	GamesPlayed     int
}

// SubmitResult reports the post-merge state of the affected entry.
type SubmitResult struct {
	Username        string
	Score           int
	TotalFlips      int
	SuccessfulFlips int
	LongestCombo    int
	GamesPlayed     int
}

func clampNonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
