package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-reconciler/core/metrics"
	"media-reconciler/core/reconcile"

	"go.uber.org/zap"
)

// SearchParams is a caller's media search.
type SearchParams struct {
	// EntityID is the depicted entity, e.g. "Q84".
	EntityID string `json:"entity_id"`
	// Language selects labels. Defaults to the configured language.
	Language string `json:"language"`
	// Limit is the number of images wanted. Defaults and caps apply.
	Limit int `json:"limit"`
	// Exclude lists file titles the caller already shows.
	Exclude []string `json:"exclude,omitempty"`
	// Page, if set, adds the files recorded for that page to Exclude.
	Page string `json:"page,omitempty"`
}

// ImageResult is the response of an image search.
type ImageResult struct {
	EntityID string               `json:"entity_id"`
	Images   []Image              `json:"images"`
	Summary  reconcile.RunSummary `json:"summary"`
	Cached   bool                 `json:"cached"`
	Partial  bool                 `json:"partial,omitempty"`
}

// Service runs media searches.
type Service struct {
	cfg      Config
	fetcher  *APIFetcher
	policy   UsagePolicy
	cache    *reconcile.ResultCache
	repo     *Repository
	metrics  *metrics.Metrics
	logger   *zap.Logger
	language string
}

// NewService creates a media search service. repo and m may be nil.
func NewService(cfg Config, fetcher *APIFetcher, repo *Repository, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &Service{
		cfg:      cfg,
		fetcher:  fetcher,
		policy:   cfg.Policy(),
		cache:    reconcile.NewResultCache(cfg.CacheTTL),
		repo:     repo,
		metrics:  m,
		logger:   logger,
		language: language,
	}
}

// Policy returns the usage qualification policy in effect.
func (s *Service) Policy() UsagePolicy {
	return s.policy
}

// Search runs the reconciliation engine for params and returns the raw
// qualified items. Concurrent identical searches share one run.
// When ctx ends mid-run the items gathered so far come back with the
// context error.
func (s *Service) Search(ctx context.Context, params SearchParams) (*reconcile.Result, bool, error) {
	query, err := s.query(ctx, params)
	if err != nil {
		s.observeError(err)
		return nil, false, err
	}

	spec := &reconcile.Spec{
		Fetcher:   s.fetcher,
		Qualifier: s.policy,
		Key:       CursorKey,
		Normalize: NormalizeTitle,
		Options:   s.cfg.Options(),
		Logger:    s.logger,
	}
	if s.metrics != nil {
		spec.Observer = s.metrics
	}

	start := time.Now()
	result, hit, err := s.cache.GetOrRun(ctx, spec, query)
	if err != nil {
		s.observeError(err)
		if result != nil {
			s.logger.Warn("Media search interrupted",
				zap.String("entity_id", query.EntityID),
				zap.Int("results", len(result.Items)),
				zap.Int("rounds", result.Summary.Rounds),
				zap.Error(err),
			)
		}
		return result, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveCache(hit)
	}

	s.logger.Info("Media search completed",
		zap.String("entity_id", query.EntityID),
		zap.Int("limit", query.Limit),
		zap.Int("excluded", len(query.Exclude)),
		zap.Int("results", len(result.Items)),
		zap.Int("rounds", result.Summary.Rounds),
		zap.String("stop", string(result.Summary.Stop)),
		zap.Bool("cached", hit),
		zap.Duration("duration", time.Since(start)),
	)
	return result, hit, nil
}

// SearchImages runs a search and projects the results to images. An
// interrupted search returns the images gathered so far, marked partial,
// together with the error.
func (s *Service) SearchImages(ctx context.Context, params SearchParams) (*ImageResult, error) {
	result, hit, err := s.Search(ctx, params)
	if result == nil {
		return nil, err
	}

	images := make([]Image, 0, len(result.Items))
	for _, item := range result.Items {
		if img, ok := ToImage(item, s.policy); ok {
			images = append(images, img)
		}
	}
	return &ImageResult{
		EntityID: params.EntityID,
		Images:   images,
		Summary:  result.Summary,
		Cached:   hit,
		Partial:  err != nil,
	}, err
}

// ResolveEntity returns the entity associated with a page.
func (s *Service) ResolveEntity(ctx context.Context, pageTitle string) (string, error) {
	return s.fetcher.ResolveEntityID(ctx, pageTitle)
}

// Invalidate drops cached results for an entity, or all when empty.
func (s *Service) Invalidate(entityID string) int {
	return s.cache.Invalidate(entityID)
}

// query validates params and gathers the exclusion list.
func (s *Service) query(ctx context.Context, params SearchParams) (reconcile.Query, error) {
	if err := ValidateEntityID(params.EntityID); err != nil {
		return reconcile.Query{}, err
	}

	language := params.Language
	if language == "" {
		language = s.language
	}

	exclude := append([]string(nil), params.Exclude...)
	if params.Page != "" && s.repo.Available() {
		known, err := s.repo.KnownFor(ctx, params.Page)
		if err != nil {
			// the search still runs; it may return files the page shows
			s.logger.Warn("Known media lookup failed", zap.String("page", params.Page), zap.Error(err))
		} else {
			exclude = append(exclude, known...)
		}
	}

	return reconcile.Query{
		EntityID: params.EntityID,
		Language: language,
		Limit:    s.cfg.ClampLimit(params.Limit),
		Exclude:  exclude,
	}, nil
}

func (s *Service) observeError(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveError(ErrorKind(err))
}

// ErrorKind classifies a search error for metrics and HTTP status mapping.
func ErrorKind(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrInvalidEntityID), errors.Is(err, reconcile.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, ErrEntityNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, reconcile.ErrMalformedResponse), errors.Is(err, ErrUpstreamStatus), errors.As(err, &apiErr):
		return "upstream"
	default:
		return "transport"
	}
}

// String renders params for logs.
func (p SearchParams) String() string {
	return fmt.Sprintf("%s lang=%s limit=%d exclude=%d page=%q", p.EntityID, p.Language, p.Limit, len(p.Exclude), p.Page)
}
