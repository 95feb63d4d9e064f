package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sumire/homestead/internal/domain"
)

type playerRow struct {
	ID    int64   `db:"id"`
	Level int     `db:"level"`
	PosX  float64 `db:"pos_x"`
	PosY  float64 `db:"pos_y"`
	HomeX float64 `db:"home_x"`
	HomeY float64 `db:"home_y"`
}

func (r playerRow) toDomain() *domain.Player {
	return &domain.Player{
		ID:       r.ID,
		Level:    r.Level,
		Position: domain.Point{X: r.PosX, Y: r.PosY},
		Home:     domain.Point{X: r.HomeX, Y: r.HomeY},
	}
}

// GetPlayer retrieves a player by ID.
func (q *Queries) GetPlayer(ctx context.Context, id int64) (*domain.Player, error) {
	var row playerRow
	err := q.get(ctx, &row,
		`SELECT id, level, pos_x, pos_y, home_x, home_y FROM players WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find player by id %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// UpsertPlayer creates a player or overwrites its level and positions.
func (q *Queries) UpsertPlayer(ctx context.Context, p domain.Player) error {
	_, err := q.exec(ctx,
		`INSERT INTO players (id, level, pos_x, pos_y, home_x, home_y)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id)
		 DO UPDATE SET level = excluded.level,
		               pos_x = excluded.pos_x,
		               pos_y = excluded.pos_y,
		               home_x = excluded.home_x,
		               home_y = excluded.home_y`,
		p.ID, p.Level, p.Position.X, p.Position.Y, p.Home.X, p.Home.Y)
	if err != nil {
		return fmt.Errorf("upsert player %d: %w", p.ID, err)
	}
	return nil
}

// MovePlayer updates a player's current position.
func (q *Queries) MovePlayer(ctx context.Context, id int64, pos domain.Point) error {
	n, err := q.exec(ctx, `UPDATE players SET pos_x = ?, pos_y = ? WHERE id = ?`, pos.X, pos.Y, id)
	if err != nil {
		return fmt.Errorf("move player %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetProfession returns the player's progress in a profession. Professions never practised
// are reported at level 1 with no experience.
func (q *Queries) GetProfession(ctx context.Context, playerID int64, name string) (domain.Profession, error) {
	p := domain.Profession{PlayerID: playerID, Name: name, Level: 1}
	err := q.get(ctx, &p,
		`SELECT player_id, profession, level, experience
		 FROM professions WHERE player_id = ? AND profession = ?`, playerID, name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("find profession %s for player %d: %w", name, playerID, err)
	}
	return p, nil
}

// SaveProfession stores a profession's level and experience.
func (q *Queries) SaveProfession(ctx context.Context, p domain.Profession) error {
	_, err := q.exec(ctx,
		`INSERT INTO professions (player_id, profession, level, experience)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (player_id, profession)
		 DO UPDATE SET level = excluded.level, experience = excluded.experience`,
		p.PlayerID, p.Name, p.Level, p.Experience)
	if err != nil {
		return fmt.Errorf("save profession %s for player %d: %w", p.Name, p.PlayerID, err)
	}
	return nil
}

// GetBuilding returns the player's building. Buildings never built are reported at level 0.
func (q *Queries) GetBuilding(ctx context.Context, playerID int64, buildingID string) (domain.Building, error) {
	b := domain.Building{PlayerID: playerID, BuildingID: buildingID}
	err := q.get(ctx, &b,
		`SELECT player_id, building_id, level
		 FROM player_buildings WHERE player_id = ? AND building_id = ?`, playerID, buildingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("find building %s for player %d: %w", buildingID, playerID, err)
	}
	return b, nil
}

// SetBuildingLevel records a building's level.
func (q *Queries) SetBuildingLevel(ctx context.Context, playerID int64, buildingID string, level int) error {
	_, err := q.exec(ctx,
		`INSERT INTO player_buildings (player_id, building_id, level)
		 VALUES (?, ?, ?)
		 ON CONFLICT (player_id, building_id)
		 DO UPDATE SET level = excluded.level`,
		playerID, buildingID, level)
	if err != nil {
		return fmt.Errorf("set building %s level for player %d: %w", buildingID, playerID, err)
	}
	return nil
}
