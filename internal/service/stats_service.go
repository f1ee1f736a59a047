package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/stats"
	"go-resto-inventory/pkg/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultStatsWindow = 30 * 24 * time.Hour
	topLossProducts    = 10
)

type StatsQuery struct {
	EstablishmentID uuid.UUID
	From            time.Time
	To              time.Time
}

type StatsService interface {
	GetStatistics(ctx context.Context, actor model.Actor, q StatsQuery) (*stats.Statistics, error)
	GetLossAnalysis(ctx context.Context, actor model.Actor, q StatsQuery) (*stats.LossAnalysis, error)
	// Invalidate drops the cached results of an establishment.
	Invalidate(ctx context.Context, establishmentID uuid.UUID)
}

type statsService struct {
	productRepo repository.ProductRepository
	entryRepo   repository.InventoryEntryRepository
	aggRepo     repository.AggregateRepository
	cache       *cache.JSONCache
	now         Clock
	loc         *time.Location
	log         *zap.Logger
}

func NewStatsService(
	pRepo repository.ProductRepository,
	eRepo repository.InventoryEntryRepository,
	aRepo repository.AggregateRepository,
	c *cache.JSONCache,
	now Clock,
	loc *time.Location,
	log *zap.Logger,
) StatsService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &statsService{productRepo: pRepo, entryRepo: eRepo, aggRepo: aRepo, cache: c, now: now, loc: loc, log: log}
}

func (s *statsService) normalize(actor model.Actor, q *StatsQuery) error {
	if err := authorize(actor, q.EstablishmentID); err != nil {
		return err
	}
	if q.To.IsZero() {
		q.To = s.now()
	}
	if q.From.IsZero() {
		q.From = q.To.Add(-defaultStatsWindow)
	}
	if q.To.Before(q.From) {
		return fmt.Errorf("%w: end date before start date", model.ErrValidation)
	}
	return nil
}

func (s *statsService) key(kind string, q StatsQuery) string {
	return s.cache.Key(q.EstablishmentID.String(), kind, q.From.UTC().Format(time.RFC3339), q.To.UTC().Format(time.RFC3339))
}

// revenueProfits reads the daily profit buckets overlapping the window.
func (s *statsService) revenueProfits(ctx context.Context, q StatsQuery) ([]model.ProductProfit, error) {
	from := DayStart(q.From, s.loc)
	return s.aggRepo.ListProfit(ctx, model.AggregateFilter{
		EstablishmentID: q.EstablishmentID,
		Period:          model.PeriodDaily,
		From:            &from,
		To:              &q.To,
	})
}

func (s *statsService) lossEntries(ctx context.Context, q StatsQuery) ([]model.InventoryEntry, error) {
	loss := model.EntryLoss
	return s.entryRepo.FindAll(ctx, model.EntryFilter{
		EstablishmentID: q.EstablishmentID,
		Type:            &loss,
		From:            &q.From,
		To:              &q.To,
	})
}

func (s *statsService) GetStatistics(ctx context.Context, actor model.Actor, q StatsQuery) (*stats.Statistics, error) {
	if err := s.normalize(actor, &q); err != nil {
		return nil, err
	}
	var out stats.Statistics
	err := s.cache.Fetch(ctx, s.key("statistics", q), &out, func(ctx context.Context) (interface{}, error) {
		products, err := s.productRepo.FindAll(ctx, q.EstablishmentID)
		if err != nil {
			return nil, err
		}
		// Sales come from the profit buckets; synced "sortie" entries would count them twice.
		totals, err := s.entryRepo.Totals(ctx, model.EntryFilter{
			EstablishmentID: q.EstablishmentID,
			Source:          model.SourceManual,
			From:            &q.From,
			To:              &q.To,
		})
		if err != nil {
			return nil, err
		}
		profits, err := s.revenueProfits(ctx, q)
		if err != nil {
			return nil, err
		}
		losses, err := s.lossEntries(ctx, q)
		if err != nil {
			return nil, err
		}
		lossCost := 0.0
		for _, e := range losses {
			lossCost += e.TotalCost
		}
		return stats.Summarize(stats.Input{
			Products: products,
			Totals:   *totals,
			Profits:  profits,
			LossCost: lossCost,
			Days:     int(math.Ceil(q.To.Sub(q.From).Hours() / 24)),
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *statsService) GetLossAnalysis(ctx context.Context, actor model.Actor, q StatsQuery) (*stats.LossAnalysis, error) {
	if err := s.normalize(actor, &q); err != nil {
		return nil, err
	}
	var out stats.LossAnalysis
	err := s.cache.Fetch(ctx, s.key("losses", q), &out, func(ctx context.Context) (interface{}, error) {
		losses, err := s.lossEntries(ctx, q)
		if err != nil {
			return nil, err
		}
		profits, err := s.revenueProfits(ctx, q)
		if err != nil {
			return nil, err
		}
		revenue := 0.0
		for _, p := range profits {
			revenue += p.TotalRevenue
		}
		return stats.AnalyzeLosses(losses, revenue, topLossProducts), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *statsService) Invalidate(ctx context.Context, establishmentID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, establishmentID.String()); err != nil {
		s.log.Warn("stats cache invalidation failed",
			zap.String("establishment_id", establishmentID.String()),
			zap.Error(err))
	}
}
