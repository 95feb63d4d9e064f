package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/domain"
	"github.com/sumire/homestead/internal/repository"
	"github.com/sumire/homestead/internal/reward"
)

// startPlan is what a kind-specific check resolves before a job is created.
type startPlan struct {
	target   domain.JobTarget
	duration time.Duration
	debits   []domain.ItemStack
	quality  domain.Quality
	preview  []reward.QualityBand
}

type planFunc func(q repository.Querier, player *domain.Player, now time.Time) (*startPlan, error)

// StartGathering starts gathering from a resource node, optionally with a tool the player holds.
func (s *JobService) StartGathering(ctx context.Context, ownerID, nodeID int64, toolID string) (*JobView, error) {
	return s.start(ctx, ownerID, domain.JobKindGathering, func(q repository.Querier, player *domain.Player, now time.Time) (*startPlan, error) {
		node, err := q.GetNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if node.Refresh(now) {
			if err := q.SaveNode(ctx, *node); err != nil {
				return nil, err
			}
		}
		nodeType, ok := s.catalog.NodeType(node.TypeID)
		if !ok {
			return nil, fmt.Errorf("node %d has unknown type %q", node.ID, node.TypeID)
		}

		if !s.presence.InReach(*player, node.Location) {
			return nil, domain.ErrTooFar
		}
		if node.IsDepleted {
			return nil, domain.ErrNodeDepleted
		}

		speedBonus, toolTier := 0, 0
		if toolID != "" {
			tool, ok := s.catalog.Tool(toolID)
			if !ok {
				return nil, &domain.ValidationError{Field: "tool_id", Message: "unknown tool"}
			}
			held, err := q.Quantities(ctx, ownerID, []string{toolID})
			if err != nil {
				return nil, err
			}
			if held[toolID] < 1 {
				return nil, domain.ErrToolRequired
			}
			speedBonus, toolTier = tool.SpeedBonusPct, tool.Tier
		}
		if nodeType.MinToolTier > 0 && (toolID == "" || toolTier < nodeType.MinToolTier) {
			return nil, domain.ErrToolRequired
		}
		if player.Level < nodeType.MinPlayerLevel {
			return nil, domain.ErrLevelTooLow
		}

		return &startPlan{
			target:   domain.JobTarget{NodeID: node.ID, ToolID: toolID},
			duration: s.reduced(nodeType.BaseSeconds, speedBonus),
		}, nil
	})
}

// StartBuilding starts constructing a building at level 1.
func (s *JobService) StartBuilding(ctx context.Context, ownerID int64, buildingID string) (*JobView, error) {
	return s.start(ctx, ownerID, domain.JobKindBuilding, func(q repository.Querier, player *domain.Player, _ time.Time) (*startPlan, error) {
		def, ok := s.catalog.Building(buildingID)
		if !ok {
			return nil, fmt.Errorf("building %q: %w", buildingID, domain.ErrNotFound)
		}
		if !s.presence.AtHome(*player) {
			return nil, domain.ErrNotAtHome
		}
		current, err := q.GetBuilding(ctx, ownerID, buildingID)
		if err != nil {
			return nil, err
		}
		if current.Level >= 1 {
			return nil, domain.ErrAlreadyBuilt
		}
		return s.buildingPlan(def.ID, def.Levels[0], player)
	})
}

// StartUpgrade starts raising a built building by one level.
func (s *JobService) StartUpgrade(ctx context.Context, ownerID int64, buildingID string) (*JobView, error) {
	return s.start(ctx, ownerID, domain.JobKindBuilding, func(q repository.Querier, player *domain.Player, _ time.Time) (*startPlan, error) {
		def, ok := s.catalog.Building(buildingID)
		if !ok {
			return nil, fmt.Errorf("building %q: %w", buildingID, domain.ErrNotFound)
		}
		if !s.presence.AtHome(*player) {
			return nil, domain.ErrNotAtHome
		}
		current, err := q.GetBuilding(ctx, ownerID, buildingID)
		if err != nil {
			return nil, err
		}
		if current.Level < 1 {
			return nil, domain.ErrNotBuilt
		}
		next, ok := def.Level(current.Level + 1)
		if !ok {
			return nil, domain.ErrMaxLevelReached
		}
		return s.buildingPlan(def.ID, next, player)
	})
}

func (s *JobService) buildingPlan(buildingID string, level catalog.LevelDef, player *domain.Player) (*startPlan, error) {
	if player.Level < level.MinPlayerLevel {
		return nil, domain.ErrLevelTooLow
	}
	return &startPlan{
		target:   domain.JobTarget{BuildingID: buildingID, TargetLevel: level.Level},
		duration: s.reduced(level.DurationSeconds, 0),
		debits:   level.Cost,
	}, nil
}

// StartCrafting starts crafting a recipe. The quality tier is rolled now and returned only as
// the chances it was drawn from.
func (s *JobService) StartCrafting(ctx context.Context, ownerID int64, recipeID string) (*JobView, error) {
	return s.start(ctx, ownerID, domain.JobKindCrafting, func(q repository.Querier, player *domain.Player, _ time.Time) (*startPlan, error) {
		recipe, ok := s.catalog.Recipe(recipeID)
		if !ok {
			return nil, fmt.Errorf("recipe %q: %w", recipeID, domain.ErrNotFound)
		}
		if !s.presence.AtHome(*player) {
			return nil, domain.ErrNotAtHome
		}

		prof, err := q.GetProfession(ctx, ownerID, recipe.Profession)
		if err != nil {
			return nil, err
		}
		if prof.Level < recipe.MinProfessionLevel {
			return nil, domain.ErrProfessionLevelTooLow
		}

		stationLevel := 0
		if recipe.Station != "" {
			station, err := q.GetBuilding(ctx, ownerID, recipe.Station)
			if err != nil {
				return nil, err
			}
			if station.Level < max(1, recipe.MinStationLevel) {
				return nil, domain.ErrStationLevelTooLow
			}
			stationLevel = station.Level
		}

		bands := reward.QualityBands(s.catalog.QualityTiers, reward.QualityModifiers{
			ProfessionLevel: prof.Level,
			StationLevel:    stationLevel,
		})
		return &startPlan{
			target:   domain.JobTarget{RecipeID: recipe.ID},
			duration: s.reduced(recipe.DurationSeconds, prof.Level*s.catalog.ProfessionTimeReductionPct),
			debits:   recipe.Materials,
			quality:  reward.RollQuality(bands, s.random),
			preview:  bands,
		}, nil
	})
}

// StartCollection starts collecting the output of a producing building. The yield scales with
// the building level at start.
func (s *JobService) StartCollection(ctx context.Context, ownerID int64, buildingID string) (*JobView, error) {
	return s.start(ctx, ownerID, domain.JobKindCollection, func(q repository.Querier, _ *domain.Player, _ time.Time) (*startPlan, error) {
		def, ok := s.catalog.Building(buildingID)
		if !ok {
			return nil, fmt.Errorf("building %q: %w", buildingID, domain.ErrNotFound)
		}
		if def.Produces == nil {
			return nil, &domain.ValidationError{Field: "building_id", Message: "building produces nothing"}
		}
		current, err := q.GetBuilding(ctx, ownerID, buildingID)
		if err != nil {
			return nil, err
		}
		if current.Level < 1 {
			return nil, domain.ErrNotBuilt
		}
		return &startPlan{
			target:   domain.JobTarget{BuildingID: def.ID, TargetLevel: current.Level},
			duration: s.reduced(def.Produces.DurationSeconds, 0),
		}, nil
	})
}

// start claims the owner's job slot first, then runs the checks, the debit and the insert in
// the same transaction. A concurrent start waits on the claim and is rejected before any gate
// or debit runs; a failure after the debit rolls the debit and the claim back.
func (s *JobService) start(ctx context.Context, ownerID int64, kind domain.JobKind, plan planFunc) (*JobView, error) {
	now := s.clock.Now()
	jobID := uuid.NewString()

	var view *JobView
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		claimed, err := q.ClaimActiveJob(ctx, ownerID, jobID, kind, now)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrJobInProgress
		}

		player, err := q.GetPlayer(ctx, ownerID)
		if err != nil {
			return err
		}
		p, err := plan(q, player, now)
		if err != nil {
			return err
		}
		if err := q.Debit(ctx, ownerID, p.debits); err != nil {
			return err
		}

		job := domain.Job{
			ID:             jobID,
			OwnerID:        ownerID,
			Kind:           kind,
			Status:         domain.JobStatusActive,
			Target:         p.target,
			StartedAt:      now,
			FinishAt:       now.Add(p.duration),
			Quality:        p.quality,
			ConsumedInputs: repository.Merge(p.debits),
		}
		if err := q.CreateJob(ctx, job); err != nil {
			return err
		}

		view = newJobView(&job, now)
		view.DurationSeconds = ceilSeconds(p.duration)
		view.QualityPreview = p.preview
		return nil
	})
	if err != nil {
		if reason, ok := domain.PreconditionCode(err); ok {
			s.metrics.StartRejected(reason)
		}
		return nil, err
	}

	job := view.Job
	s.metrics.JobStarted(kind)
	slog.Info("job started", "job_id", job.ID, "owner_id", ownerID, "kind", kind, "finish_at", job.FinishAt)
	s.publish(ctx, domain.JobEvent{Type: domain.JobEventStarted, JobID: job.ID, OwnerID: ownerID, Kind: kind, At: now})
	return view, nil
}

// reduced applies an integer percent reduction to seconds, capped by the catalog, and never
// returns less than one second.
func (s *JobService) reduced(seconds, reductionPct int) time.Duration {
	reductionPct = min(max(reductionPct, 0), s.catalog.MaxTimeReductionPct)
	sec := seconds * (100 - reductionPct) / 100
	return time.Duration(max(sec, 1)) * time.Second
}
