package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

var hundred = decimal.NewFromInt(100)

// GoalProgressAt reports how far g is from its target as of now.
func GoalProgressAt(g core.Goal, now time.Time) core.GoalProgress {
	p := core.GoalProgress{Goal: g, DaysRemaining: daysBetween(now, g.TargetDate)}
	if g.Target.IsPositive() {
		p.Percent, _ = g.Current.Div(g.Target).Mul(hundred).Round(2).Float64()
	}
	return p
}

// daysBetween counts calendar days from from's date to to's date, negative
// when to is earlier.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (s *FinanceService) ListGoals(ctx context.Context) ([]core.GoalProgress, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]core.GoalProgress, len(goals))
	for i, g := range goals {
		out[i] = GoalProgressAt(g, now)
	}
	return out, nil
}

func (s *FinanceService) GetGoal(ctx context.Context, id int64) (core.GoalProgress, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return GoalProgressAt(g, s.now()), nil
}

func (s *FinanceService) CreateGoal(ctx context.Context, in core.GoalInput) (core.Goal, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Goal{}, err
	}
	g := in.Goal(0, decimal.Zero)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	return s.store.CreateGoal(ctx, g)
}

// UpdateGoal rewrites a goal's description, target and date. Progress is
// kept.
func (s *FinanceService) UpdateGoal(ctx context.Context, id int64, in core.GoalInput) (core.Goal, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Goal{}, err
	}
	current, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	g := in.Goal(id, current.Current)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	return g, nil
}

func (s *FinanceService) DeleteGoal(ctx context.Context, id int64) error {
	return s.store.DeleteGoal(ctx, id)
}

// AddProgress adds a positive amount to the goal's current value.
func (s *FinanceService) AddProgress(ctx context.Context, id int64, in core.ProgressInput) (core.GoalProgress, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.GoalProgress{}, err
	}
	if !in.Amount.IsPositive() {
		return core.GoalProgress{}, core.NewValidationError("amount", core.ErrInvalidAmount)
	}
	g, err := s.store.AddGoalProgress(ctx, id, core.RoundMoney(in.Amount))
	if err != nil {
		return core.GoalProgress{}, err
	}
	return GoalProgressAt(g, s.now()), nil
}
