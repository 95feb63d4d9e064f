package domain

// Point is a position on the world plane.
type Point struct {
	X float64 `json:"x" db:"x"`
	Y float64 `json:"y" db:"y"`
}

// Player holds the attributes of a player the job engine reads. Players are created and moved
// by other systems.
type Player struct {
	ID       int64 `json:"id"`
	Level    int   `json:"level"`
	Position Point `json:"position"`
	Home     Point `json:"home"`
}

// Profession tracks a player's progress in one crafting profession.
type Profession struct {
	PlayerID   int64  `json:"-" db:"player_id"`
	Name       string `json:"name" db:"profession"`
	Level      int    `json:"level" db:"level"`
	Experience int    `json:"experience" db:"experience"`
}

// AddExperience adds gain and levels up while the experience covers the current level's
// threshold (level * perLevel), carrying the excess over. maxLevel <= 0 disables the cap.
// It returns the number of levels gained.
func (p *Profession) AddExperience(gain, perLevel, maxLevel int) int {
	if p.Level < 1 {
		p.Level = 1
	}
	p.Experience += gain
	if perLevel <= 0 {
		return 0
	}

	gained := 0
	for p.Experience >= p.Level*perLevel {
		if maxLevel > 0 && p.Level >= maxLevel {
			break
		}
		p.Experience -= p.Level * perLevel
		p.Level++
		gained++
	}
	return gained
}

// Building is a structure a player owns at their home.
type Building struct {
	PlayerID   int64  `json:"-" db:"player_id"`
	BuildingID string `json:"building_id" db:"building_id"`
	Level      int    `json:"level" db:"level"`
}
