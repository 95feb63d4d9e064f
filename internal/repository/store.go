package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/homestead/internal/domain"
)

// Querier is every data access operation the job engine performs. It is implemented by
// Queries, bound either to the database or to a transaction.
type Querier interface {
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error)
	UpsertPlayer(ctx context.Context, p domain.Player) error
	MovePlayer(ctx context.Context, id int64, pos domain.Point) error

	GetProfession(ctx context.Context, playerID int64, name string) (domain.Profession, error)
	SaveProfession(ctx context.Context, p domain.Profession) error
	GetBuilding(ctx context.Context, playerID int64, buildingID string) (domain.Building, error)
	SetBuildingLevel(ctx context.Context, playerID int64, buildingID string, level int) error

	Inventory(ctx context.Context, playerID int64) ([]domain.ItemStack, error)
	Quantities(ctx context.Context, playerID int64, items []string) (map[string]int, error)
	Debit(ctx context.Context, playerID int64, stacks []domain.ItemStack) error
	Credit(ctx context.Context, playerID int64, stacks []domain.ItemStack) error
	AddCraftedItem(ctx context.Context, item domain.CraftedItem) error
	CraftedItems(ctx context.Context, playerID int64) ([]domain.CraftedItem, error)

	GetNode(ctx context.Context, id int64) (*domain.ResourceNode, error)
	CreateNode(ctx context.Context, n domain.ResourceNode) error
	SaveNode(ctx context.Context, n domain.ResourceNode) error
	HarvestNode(ctx context.Context, id int64, amount int, at time.Time) (*domain.ResourceNode, error)

	ClaimActiveJob(ctx context.Context, ownerID int64, jobID string, kind domain.JobKind, at time.Time) (bool, error)
	ActiveJobID(ctx context.Context, ownerID int64) (string, error)
	ReleaseActiveJob(ctx context.Context, ownerID int64, jobID string) error
	CreateJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	LastFinishedJob(ctx context.Context, ownerID int64) (*domain.Job, error)
	SaveJobTiming(ctx context.Context, job domain.Job, from domain.JobStatus) (bool, error)
	FinishJob(ctx context.Context, jobID string, to domain.JobStatus, at time.Time, reward any) (bool, error)
}

// Queries runs statements against a database handle or an open transaction.
type Queries struct {
	db sqlx.ExtContext
}

var _ Querier = (*Queries)(nil)

// Store owns the database connection and opens transactions.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Queries returns a Querier that runs each statement on its own.
func (s *Store) Queries() *Queries {
	return &Queries{db: s.db}
}

// RunInTx runs fn inside a transaction, committing when fn returns nil and rolling back
// otherwise. Every write fn performs is all-or-nothing.
func (s *Store) RunInTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (q *Queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.db, dest, q.db.Rebind(query), args...)
}

func (q *Queries) sel(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.db, dest, q.db.Rebind(query), args...)
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func unix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
