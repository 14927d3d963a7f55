package product

import (
	"context"
	"fmt"

	"merchant-checkout/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, gtin string) (*Product, error)
	// Resolve looks up every GTIN and fails with ErrProductNotFound on the
	// first unknown one, in input order.
	Resolve(ctx context.Context, gtins []string) (map[string]Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list products", zap.Error(err))
		return nil, err
	}
	return products, nil
}

func (s *service) Get(ctx context.Context, gtin string) (*Product, error) {
	return s.repo.GetByGTIN(ctx, gtin)
}

func (s *service) Resolve(ctx context.Context, gtins []string) (map[string]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ResolveProducts"),
		zap.Int("gtin_count", len(gtins)),
	)

	unique := make([]string, 0, len(gtins))
	seen := make(map[string]struct{}, len(gtins))
	for _, g := range gtins {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		unique = append(unique, g)
	}

	found, err := s.repo.GetByGTINs(ctx, unique)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, err
	}

	for _, g := range unique {
		if _, ok := found[g]; !ok {
			log.Warn("unknown product", zap.String("gtin", g))
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, g)
		}
	}

	return found, nil
}
