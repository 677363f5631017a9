package domain

import "time"

// MaxLevel is the number of levels per character.
const MaxLevel = 4

// LevelProgress is the unlock and scoring state of one level.
type LevelProgress struct {
	Level       int        `json:"level"`
	IsUnlocked  bool       `json:"isUnlocked"`
	IsCompleted bool       `json:"isCompleted"`
	BestScore   int        `json:"bestScore"`
	Attempts    int        `json:"attempts"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// DefaultLevels returns level 1 unlocked and levels 2-4 locked.
func DefaultLevels() [MaxLevel]LevelProgress {
	var levels [MaxLevel]LevelProgress
	for i := range levels {
		levels[i] = LevelProgress{Level: i + 1, IsUnlocked: i == 0}
	}
	return levels
}

// ValidLevel reports whether level addresses an entry of the levels array.
func ValidLevel(level int) bool {
	return level >= 1 && level <= MaxLevel
}

// CharacterProgress holds a user's levels for one character.
type CharacterProgress struct {
	CharacterID string                  `json:"characterId"`
	Name        string                  `json:"name"`
	IsSelected  bool                    `json:"isSelected"`
	Levels      [MaxLevel]LevelProgress `json:"levels"`
}

// Level returns the entry for a 1-based level number.
func (c *CharacterProgress) Level(level int) *LevelProgress {
	return &c.Levels[level-1]
}

// UserProgress is the per-user unlock record.
type UserProgress struct {
	UserID              string              `json:"userId"`
	CurrentCharacter    string              `json:"currentCharacter,omitempty"`
	CurrentLevel        int                 `json:"currentLevel"`
	TotalScore          int                 `json:"totalScore"`
	TotalGamesPlayed    int                 `json:"totalGamesPlayed"`
	TotalGamesCompleted int                 `json:"totalGamesCompleted"`
	Characters          []CharacterProgress `json:"characters"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// NewUserProgress builds the record created on first access.
func NewUserProgress(userID string, now time.Time) UserProgress {
	return UserProgress{
		UserID:       userID,
		CurrentLevel: 1,
		Characters:   []CharacterProgress{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Character finds the entry for characterID.
func (p *UserProgress) Character(characterID string) *CharacterProgress {
	for i := range p.Characters {
		if p.Characters[i].CharacterID == characterID {
			return &p.Characters[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.Characters = make([]CharacterProgress, len(p.Characters))
	for i, c := range p.Characters {
		for j, l := range c.Levels {
			if l.CompletedAt != nil {
				at := *l.CompletedAt
				c.Levels[j].CompletedAt = &at
			}
		}
		out.Characters[i] = c
	}
	return out
}

// UserStats is the per-user aggregate fed by completed sessions and ranked by the leaderboard.
type UserStats struct {
	UserID         string    `json:"userId"`
	TotalScore     int       `json:"totalScore"`
	HighestScore   int       `json:"highestScore"`
	GamesPlayed    int       `json:"gamesPlayed"`
	Experience     int       `json:"experience"`
	ScoreReachedAt time.Time `json:"scoreReachedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CompletionEvent is forwarded when a session completes.
type CompletionEvent struct {
	UserID           string
	CharacterID      string
	Score            int
	ExperienceGained int
	CompletedAt      time.Time
}

// RankedEntry is one leaderboard row.
type RankedEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"userId"`
	TotalScore   int    `json:"totalScore"`
	HighestScore int    `json:"highestScore"`
	GamesPlayed  int    `json:"gamesPlayed"`
}
