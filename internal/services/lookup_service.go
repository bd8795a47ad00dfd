package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/landrecords-in/jamabandi/internal/models"
	apperrors "github.com/landrecords-in/jamabandi/pkg/errors"
	"github.com/landrecords-in/jamabandi/pkg/logger"
)

// RecordFetcher retrieves a land record from the portal. A single call is a
// complete, stateless fetch; the implementation performs no retries.
type RecordFetcher interface {
	Fetch(ctx context.Context, key models.RecordKey) (*models.LandRecord, error)
}

// LookupService resolves a land record by key: the store is consulted first
// and the portal is only scraped on a miss or a forced refresh.
type LookupService struct {
	store   *RecordService
	fetcher RecordFetcher
	log     *zap.Logger
}

// NewLookupService wires the store and fetcher together.
func NewLookupService(store *RecordService, fetcher RecordFetcher) (*LookupService, error) {
	if store == nil {
		return nil, errors.New("lookup service: store is required")
	}
	if fetcher == nil {
		return nil, errors.New("lookup service: fetcher is required")
	}
	return &LookupService{
		store:   store,
		fetcher: fetcher,
		log:     logger.WithModule("lookup"),
	}, nil
}

// Resolve returns the record for the key. A stored record satisfies the
// lookup unless forceRefresh is set; otherwise the portal is fetched once
// and the result upserted before being returned. A fetch failure leaves the
// store untouched.
func (s *LookupService) Resolve(ctx context.Context, key models.RecordKey, forceRefresh bool) (*models.LandRecord, error) {
	if s == nil {
		return nil, errors.New("lookup service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	stored, err := s.store.FindByKey(ctx, key)
	switch {
	case err == nil && !forceRefresh:
		s.log.Debug("record served from store",
			zap.String("district", key.DistrictName),
			zap.String("khasra_no", key.KhasraNo))
		return stored, nil
	case err != nil && !apperrors.IsNotFound(err):
		return nil, err
	}

	s.log.Info("fetching record from portal",
		zap.String("district", key.DistrictName),
		zap.String("tehsil", key.TehsilName),
		zap.String("village", key.VillageName),
		zap.String("khasra_no", key.KhasraNo),
		zap.Bool("force_refresh", forceRefresh))

	fetched, err := s.fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}

	s.log.Info("record persisted", zap.Uint("id", saved.ID))
	return saved, nil
}
