package progress

// AchievementKind is the statistic an achievement is measured on.
type AchievementKind string

// Achievement kinds
const (
	KindWordsAdded    AchievementKind = "words_added"
	KindWordsMastered AchievementKind = "words_mastered"
	KindStreak        AchievementKind = "streak_count"
)

// Achievement is a milestone the learner unlocks once Requirement is reached.
type Achievement struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Kind        AchievementKind `json:"kind"`
	Requirement int             `json:"requirement"`
}

// Achievements lists every milestone.
var Achievements = []Achievement{
	{ID: "first_word", Title: "First Word", Description: "Added your first word", Kind: KindWordsAdded, Requirement: 1},
	{ID: "word_collector", Title: "Word Collector", Description: "Added 50 words", Kind: KindWordsAdded, Requirement: 50},
	{ID: "master_learner", Title: "Master Learner", Description: "Mastered 10 words", Kind: KindWordsMastered, Requirement: 10},
	{ID: "streak_master", Title: "Streak Master", Description: "7 day streak", Kind: KindStreak, Requirement: 7},
}

// Unlocked returns the achievements reached by the given totals, in list order.
func Unlocked(words, mastered, streak int) []Achievement {
	unlocked := make([]Achievement, 0, len(Achievements))
	for _, a := range Achievements {
		var have int
		switch a.Kind {
		case KindWordsAdded:
			have = words
		case KindWordsMastered:
			have = mastered
		case KindStreak:
			have = streak
		}
		if have >= a.Requirement {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
