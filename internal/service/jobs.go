package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/clock"
	"github.com/sumire/homestead/internal/domain"
	"github.com/sumire/homestead/internal/metrics"
	"github.com/sumire/homestead/internal/presence"
	"github.com/sumire/homestead/internal/repository"
	"github.com/sumire/homestead/internal/reward"
)

// duplicateCollectWindow is how long after a collect a repeated unpinned collect is reported
// as already collected rather than as having no job.
const duplicateCollectWindow = 5 * time.Second

// Store defines the transactional data access consumed by JobService.
type Store interface {
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// Publisher delivers job events after they have been committed.
type Publisher interface {
	Publish(ctx context.Context, evt domain.JobEvent) error
}

// JobConfig holds the job engine settings and collaborators. Zero values fall back to the real
// clock and the global random source; a nil Events or Metrics disables them.
type JobConfig struct {
	HomeRadius         float64
	InteractionRadius  float64
	BuildRefundPercent int

	Clock   clock.Clock
	Random  reward.Source
	Events  Publisher
	Metrics *metrics.Metrics
}

// JobService is the job lifecycle manager: it starts, reconciles, collects and cancels a
// player's single active job.
type JobService struct {
	store     Store
	catalog   *catalog.Catalog
	presence  presence.Oracle
	clock     clock.Clock
	random    reward.Source
	events    Publisher
	metrics   *metrics.Metrics
	refundPct int
}

// NewJobService creates a new JobService.
func NewJobService(store Store, cat *catalog.Catalog, cfg JobConfig) *JobService {
	s := &JobService{
		store:     store,
		catalog:   cat,
		presence:  presence.New(cfg.HomeRadius, cfg.InteractionRadius),
		clock:     cfg.Clock,
		random:    cfg.Random,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		refundPct: cfg.BuildRefundPercent,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.random == nil {
		s.random = reward.Global{}
	}
	return s
}

// JobView is a job evaluated at a point in time. Job is nil when the player has no active job.
type JobView struct {
	Job              *domain.Job          `json:"job"`
	Status           domain.JobStatus     `json:"status,omitempty"`
	RemainingSeconds int64                `json:"remaining_seconds"`
	Paused           bool                 `json:"paused"`
	DurationSeconds  int64                `json:"duration_seconds,omitempty"`
	QualityPreview   []reward.QualityBand `json:"quality_preview,omitempty"`
}

func newJobView(job *domain.Job, now time.Time) *JobView {
	status := job.DerivedStatus(now)
	return &JobView{
		Job:              job,
		Status:           status,
		RemainingSeconds: ceilSeconds(job.Remaining(now)),
		Paused:           status == domain.JobStatusPaused,
	}
}

// CancelResult acknowledges a cancellation.
type CancelResult struct {
	JobID    string             `json:"job_id"`
	Kind     domain.JobKind     `json:"kind"`
	Refunded []domain.ItemStack `json:"refunded"`
}

// GetStatus returns the player's current job, applying pause/resume bookkeeping. It never
// grants anything.
func (s *JobService) GetStatus(ctx context.Context, ownerID int64) (*JobView, error) {
	now := s.clock.Now()

	var job *domain.Job
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		var err error
		job, err = s.currentJob(ctx, q, ownerID, "", now)
		if errors.Is(err, domain.ErrNoActiveJob) {
			job = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return &JobView{}, nil
	}
	return newJobView(job, now), nil
}

// Collect grants the reward of the player's ready job and makes it terminal. jobID pins the
// call to one job and may be empty to mean the active one. Of concurrent calls for one job only
// one succeeds; the rest get domain.ErrAlreadyCollected, including unpinned calls that arrive
// within duplicateCollectWindow of the winning collect.
func (s *JobService) Collect(ctx context.Context, ownerID int64, jobID string) (*domain.Reward, error) {
	now := s.clock.Now()

	var (
		rw       *domain.Reward
		job      *domain.Job
		notReady error
	)
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		var err error
		job, err = s.currentJob(ctx, q, ownerID, jobID, now)
		if errors.Is(err, domain.ErrNoActiveJob) && jobID == "" {
			return s.recentCollect(ctx, q, ownerID, now)
		}
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return domain.ErrAlreadyCollected
		}

		// Not ready: commit the timing bookkeeping but grant nothing.
		if status := job.DerivedStatus(now); status != domain.JobStatusReady {
			notReady = &domain.NotReadyError{
				Remaining: time.Duration(ceilSeconds(job.Remaining(now))) * time.Second,
				Paused:    status == domain.JobStatusPaused,
			}
			return nil
		}

		rw, err = s.grant(ctx, q, job, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if notReady != nil {
		return nil, notReady
	}

	s.metrics.JobCollected(job.Kind)
	slog.Info("job collected", "job_id", job.ID, "owner_id", ownerID, "kind", job.Kind)
	s.publish(ctx, domain.JobEvent{Type: domain.JobEventCollected, JobID: job.ID, OwnerID: ownerID, Kind: job.Kind, At: now})
	return rw, nil
}

// Cancel ends the player's job without a reward. Building jobs refund part of their cost;
// crafting materials are forfeited.
func (s *JobService) Cancel(ctx context.Context, ownerID int64) (*CancelResult, error) {
	now := s.clock.Now()

	var res *CancelResult
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		job, err := s.currentJob(ctx, q, ownerID, "", now)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return domain.ErrAlreadyCollected
		}

		refund := s.refund(job)
		ok, err := q.FinishJob(ctx, job.ID, domain.JobStatusCancelled, now, map[string]any{"refunded": refund})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyCollected
		}
		if err := q.Credit(ctx, ownerID, refund); err != nil {
			return err
		}
		if err := q.ReleaseActiveJob(ctx, ownerID, job.ID); err != nil {
			return err
		}
		res = &CancelResult{JobID: job.ID, Kind: job.Kind, Refunded: refund}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.JobCancelled(res.Kind)
	slog.Info("job cancelled", "job_id", res.JobID, "owner_id", ownerID, "kind", res.Kind, "refunded", len(res.Refunded))
	s.publish(ctx, domain.JobEvent{Type: domain.JobEventCancelled, JobID: res.JobID, OwnerID: ownerID, Kind: res.Kind, At: now})
	return res, nil
}

// recentCollect decides what an unpinned collect with no active job reports: a job collected
// moments ago means this call lost the race to it.
func (s *JobService) recentCollect(ctx context.Context, q repository.Querier, ownerID int64, now time.Time) error {
	last, err := q.LastFinishedJob(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNoActiveJob
	}
	if err != nil {
		return err
	}
	if last.Status == domain.JobStatusCollected && last.CompletedAt != nil &&
		now.Sub(*last.CompletedAt) <= duplicateCollectWindow {
		return domain.ErrAlreadyCollected
	}
	return domain.ErrNoActiveJob
}

func (s *JobService) refund(job *domain.Job) []domain.ItemStack {
	out := []domain.ItemStack{}
	if job.Kind != domain.JobKindBuilding || s.refundPct <= 0 {
		return out
	}
	for _, in := range job.ConsumedInputs {
		if qty := in.Quantity * s.refundPct / 100; qty > 0 {
			out = append(out, domain.ItemStack{Item: in.Item, Quantity: qty})
		}
	}
	return out
}

// currentJob loads jobID, or the owner's active job when jobID is empty, and reconciles its
// pause state with the owner's presence, persisting any change.
func (s *JobService) currentJob(ctx context.Context, q repository.Querier, ownerID int64, jobID string, now time.Time) (*domain.Job, error) {
	id := jobID
	if id == "" {
		var err error
		if id, err = q.ActiveJobID(ctx, ownerID); err != nil {
			return nil, err
		}
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() || !job.Kind.PauseEligible() {
		return job, nil
	}

	player, err := q.GetPlayer(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	from := job.Status
	if !job.Reconcile(now, s.presence.AtHome(*player)) {
		return job, nil
	}

	ok, err := q.SaveJobTiming(ctx, *job, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another request moved the job first; its write wins.
		return q.GetJob(ctx, id)
	}
	if job.Pause != nil {
		slog.Info("job paused", "job_id", job.ID, "owner_id", ownerID, "kind", job.Kind, "remaining_seconds", job.Pause.RemainingSeconds)
	} else {
		slog.Info("job resumed", "job_id", job.ID, "owner_id", ownerID, "kind", job.Kind, "finish_at", job.FinishAt)
	}
	return job, nil
}

// grant resolves the reward, wins the terminal transition and only then applies the reward.
func (s *JobService) grant(ctx context.Context, q repository.Querier, job *domain.Job, now time.Time) (*domain.Reward, error) {
	rw := &domain.Reward{JobID: job.ID, Kind: job.Kind}

	var (
		apply func() error
		err   error
	)
	switch job.Kind {
	case domain.JobKindGathering:
		apply, err = s.gatheringReward(ctx, q, job, now, rw)
	case domain.JobKindCrafting:
		apply, err = s.craftingReward(ctx, q, job, now, rw)
	case domain.JobKindBuilding:
		apply, err = s.buildingReward(ctx, q, job, rw)
	case domain.JobKindCollection:
		apply, err = s.collectionReward(ctx, q, job, rw)
	default:
		err = fmt.Errorf("collect job %s: unknown kind %q", job.ID, job.Kind)
	}
	if err != nil {
		return nil, err
	}

	ok, err := q.FinishJob(ctx, job.ID, domain.JobStatusCollected, now, rw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyCollected
	}
	if err := apply(); err != nil {
		return nil, err
	}
	if err := q.ReleaseActiveJob(ctx, job.OwnerID, job.ID); err != nil {
		return nil, err
	}
	return rw, nil
}

// gatheringReward rolls the node's live drop table and decrements the node.
func (s *JobService) gatheringReward(ctx context.Context, q repository.Querier, job *domain.Job, now time.Time, rw *domain.Reward) (func() error, error) {
	node, err := q.GetNode(ctx, job.Target.NodeID)
	if err != nil {
		return nil, fmt.Errorf("load node %d: %w", job.Target.NodeID, err)
	}
	nodeType, ok := s.catalog.NodeType(node.TypeID)
	if !ok {
		return nil, fmt.Errorf("node %d has unknown type %q", node.ID, node.TypeID)
	}

	var tool *catalog.Tool
	if t, ok := s.catalog.Tool(job.Target.ToolID); ok {
		tool = &t
	}
	table := reward.ResolveTable(nodeType.Drops, reward.ToolModifiers(tool))
	rw.Items = repository.Merge(table.Roll(s.random))

	return func() error {
		if err := q.Credit(ctx, job.OwnerID, rw.Items); err != nil {
			return err
		}
		if nodeType.DepletionPerGather <= 0 {
			return nil
		}
		harvested, err := q.HarvestNode(ctx, node.ID, nodeType.DepletionPerGather, now)
		if err != nil {
			return err
		}
		if harvested.IsDepleted {
			slog.Info("node depleted", "node_id", node.ID, "job_id", job.ID)
		}
		return nil
	}, nil
}

// craftingReward finalizes the quality rolled at start and awards profession experience.
func (s *JobService) craftingReward(ctx context.Context, q repository.Querier, job *domain.Job, now time.Time, rw *domain.Reward) (func() error, error) {
	recipe, ok := s.catalog.Recipe(job.Target.RecipeID)
	if !ok {
		return nil, fmt.Errorf("job %s has unknown recipe %q", job.ID, job.Target.RecipeID)
	}
	prof, err := q.GetProfession(ctx, job.OwnerID, recipe.Profession)
	if err != nil {
		return nil, err
	}
	gained := prof.AddExperience(recipe.Experience, s.catalog.ExperiencePerLevel, s.catalog.MaxProfessionLevel)

	rw.Crafted = &domain.CraftedItem{
		JobID:     job.ID,
		PlayerID:  job.OwnerID,
		ItemID:    recipe.Output,
		Quality:   job.Quality,
		CreatedAt: now,
	}
	rw.Profession = &domain.ProfessionProgress{
		Profession:       prof.Name,
		ExperienceGained: recipe.Experience,
		Level:            prof.Level,
		Experience:       prof.Experience,
		LevelsGained:     gained,
	}

	return func() error {
		if err := q.AddCraftedItem(ctx, *rw.Crafted); err != nil {
			return err
		}
		return q.SaveProfession(ctx, prof)
	}, nil
}

func (s *JobService) buildingReward(ctx context.Context, q repository.Querier, job *domain.Job, rw *domain.Reward) (func() error, error) {
	rw.Building = &domain.Building{
		PlayerID:   job.OwnerID,
		BuildingID: job.Target.BuildingID,
		Level:      job.Target.TargetLevel,
	}
	return func() error {
		return q.SetBuildingLevel(ctx, job.OwnerID, job.Target.BuildingID, job.Target.TargetLevel)
	}, nil
}

func (s *JobService) collectionReward(ctx context.Context, q repository.Querier, job *domain.Job, rw *domain.Reward) (func() error, error) {
	b, ok := s.catalog.Building(job.Target.BuildingID)
	if !ok || b.Produces == nil {
		return nil, fmt.Errorf("job %s: building %q produces nothing", job.ID, job.Target.BuildingID)
	}
	rw.Items = []domain.ItemStack{{Item: b.Produces.Item, Quantity: b.Produces.QuantityPerLevel * job.Target.TargetLevel}}
	return func() error {
		return q.Credit(ctx, job.OwnerID, rw.Items)
	}, nil
}

func (s *JobService) publish(ctx context.Context, evt domain.JobEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		slog.Warn("failed to publish job event", "type", evt.Type, "job_id", evt.JobID, "error", err)
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
