package progression

// levelTier is one entry of the fixed level curve.
type levelTier struct {
	level      int
	title      string
	xpRequired int
}

// levels is the fixed ascending level table. The current level for a given
// total XP is the highest tier whose requirement is met.
var levels = []levelTier{
	{1, "Débutant", 0},
	{2, "Apprenti", 100},
	{3, "Pratiquant", 250},
	{4, "Confirmé", 500},
	{5, "Avancé", 800},
	{6, "Expert", 1200},
	{7, "Maître", 1800},
	{8, "Légende", 2500},
}

// LevelInfo describes where a given XP total sits on the level curve.
type LevelInfo struct {
	// Level is the current level number.
	Level int `json:"level"`

	// Title is the current level's display title.
	Title string `json:"title"`

	// XPInLevel is how much XP has been earned inside the current bracket.
	XPInLevel int `json:"xp_in_level"`

	// XPForLevel is the width of the current bracket; zero at the top tier.
	XPForLevel int `json:"xp_for_level"`

	// Progress is the fraction of the bracket completed, in [0, 1].
	// At the top tier it is 1.
	Progress float64 `json:"progress"`

	// NextTitle is the next tier's title, or the current one at the top.
	NextTitle string `json:"next_title"`
}

// GetLevelInfo maps a total XP amount onto the level curve. Negative XP is
// treated as zero.
func GetLevelInfo(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	current, next := levels[0], levels[1]
	for i := len(levels) - 1; i >= 0; i-- {
		if xp >= levels[i].xpRequired {
			current = levels[i]
			if i+1 < len(levels) {
				next = levels[i+1]
			} else {
				next = levels[i]
			}
			break
		}
	}

	inLevel := xp - current.xpRequired
	forLevel := next.xpRequired - current.xpRequired
	progress := 1.0
	if forLevel > 0 {
		progress = float64(inLevel) / float64(forLevel)
	}

	return LevelInfo{
		Level:      current.level,
		Title:      current.title,
		XPInLevel:  inLevel,
		XPForLevel: forLevel,
		Progress:   progress,
		NextTitle:  next.title,
	}
}
