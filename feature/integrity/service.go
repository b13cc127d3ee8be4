package integrity

import (
	"context"
	"errors"

	"media-reconciler/core/storage"
	"media-reconciler/feature/integrity/checks"
	"media-reconciler/feature/media"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDisabled marks a check whose component is not configured.
var ErrDisabled = errors.New("component not configured")

// Service handles integrity checks.
type Service struct {
	client   storage.Client
	storeCfg storage.Config
	db       *gorm.DB
	pinger   checks.Pinger
	logger   *zap.Logger
}

// NewService creates a new integrity service. client, db and pinger may be
// nil; their checks then report ErrDisabled.
func NewService(client storage.Client, storeCfg storage.Config, db *gorm.DB, pinger checks.Pinger, logger *zap.Logger) *Service {
	return &Service{
		client:   client,
		storeCfg: storeCfg,
		db:       db,
		pinger:   pinger,
		logger:   logger,
	}
}

// CheckStorage inspects the fixture archive bucket.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, ErrDisabled
	}
	return checks.CheckStorage(ctx, s.client, s.storeCfg.Bucket, s.storeCfg.Prefix)
}

// FixStorage creates the fixture archive bucket.
func (s *Service) FixStorage(ctx context.Context) error {
	if s.client == nil {
		return ErrDisabled
	}
	return checks.FixStorage(ctx, s.client, s.storeCfg.Bucket, s.logger)
}

// CheckDatabase inspects the known-media table.
func (s *Service) CheckDatabase() (*checks.DatabaseReport, error) {
	if s.db == nil {
		return nil, ErrDisabled
	}
	return checks.CheckDatabase(s.db, media.PageMedia{}.TableName())
}

// CheckUpstream pings the search API.
func (s *Service) CheckUpstream(ctx context.Context) (*checks.UpstreamReport, error) {
	if s.pinger == nil {
		return nil, ErrDisabled
	}
	return checks.CheckUpstream(ctx, s.pinger), nil
}
