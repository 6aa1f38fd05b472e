// Package resolve finds one artist across every configured platform and
// scores their combined audience.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/metrics"
	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/provider"
)

// Default deadlines.
const (
	DefaultAdapterTimeout = 10 * time.Second
	DefaultMatcherTimeout = 90 * time.Second
)

// Service is the caller-facing entry point of the engine.
type Service struct {
	registry       *provider.Registry
	matcher        match.Matcher
	adapterTimeout time.Duration
	matcherTimeout time.Duration
	metrics        *metrics.Manager
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAdapterTimeout bounds every single adapter call.
func WithAdapterTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.adapterTimeout = d
		}
	}
}

// WithMatcherTimeout bounds the matching call.
func WithMatcherTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.matcherTimeout = d
		}
	}
}

// WithMetrics records adapter and matcher calls on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service over the registered adapters.
func NewService(registry *provider.Registry, matcher match.Matcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		registry:       registry,
		matcher:        matcher,
		adapterTimeout: DefaultAdapterTimeout,
		matcherTimeout: DefaultMatcherTimeout,
		logger:         logger.With(slog.String("component", "resolve")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Platforms returns the names of the registered adapters in priority order.
func (s *Service) Platforms() []provider.ProviderName {
	all := s.registry.All()
	names := make([]provider.ProviderName, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name())
	}
	return names
}

// ValidateURL reports whether rawURL belongs to a registered platform.
func (s *Service) ValidateURL(rawURL string) provider.ValidationResult {
	return provider.ValidateURL(rawURL, s.registry.All())
}

// ResolveURL identifies the platform rawURL belongs to and fetches the
// artist it points at. Errors keep their typed form.
func (s *Service) ResolveURL(ctx context.Context, rawURL string) (*provider.ArtistRecord, error) {
	p, err := s.registry.Classify(rawURL)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	start := time.Now()
	rec, err := p.ResolveURL(callCtx, rawURL)
	s.metrics.ObserveAdapterCall(string(p.Name()), "resolve", outcome(err), time.Since(start))
	if err != nil {
		return nil, s.timeoutErr(callCtx, p.Name(), err)
	}

	s.logger.Debug("resolved url",
		slog.String("provider", string(p.Name())),
		slog.String("id", rec.ID),
		slog.String("name", rec.Name))
	return rec, nil
}

// FindAcrossPlatforms searches every registered platform except exclude for
// artistName, asks the matcher to group the results into identities and
// returns the ranked matches.
//
// A failing or slow platform never fails the search: its results are
// treated as empty. Only when every platform comes back empty does the
// call fail, with a cross-platform ErrNotFound. Matcher errors are
// returned unchanged.
func (s *Service) FindAcrossPlatforms(ctx context.Context, artistName string, exclude provider.ProviderName) ([]match.UnifiedMatch, error) {
	query := strings.TrimSpace(artistName)
	if query == "" {
		return nil, &provider.ErrValidation{Reason: "artist name is required"}
	}
	if exclude != "" && !exclude.Valid() {
		return nil, &provider.ErrValidation{Input: string(exclude), Reason: "unknown platform"}
	}

	results, err := s.searchAll(ctx, query, exclude)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, list := range results {
		total += len(list)
	}
	if total == 0 {
		return nil, &provider.ErrNotFound{ID: query}
	}

	matchCtx, cancel := context.WithTimeout(ctx, s.matcherTimeout)
	defer cancel()

	start := time.Now()
	matches, err := s.matcher.Match(matchCtx, match.Request{Query: query, Results: results})
	if err != nil {
		s.metrics.ObserveMatcher(metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveMatcher(metrics.OutcomeOK, time.Since(start))

	for i := range matches {
		matches[i] = match.Dedupe(matches[i])
	}

	s.logger.Info("cross-platform search complete",
		slog.String("query", query),
		slog.Int("results", total),
		slog.Int("matches", len(matches)))
	return matches, nil
}

// AggregatePopularity computes the unified popularity score.
func (s *Service) AggregatePopularity(audience popularity.AudiencePerPlatform) int {
	s.metrics.IncScores()
	return popularity.Aggregate(audience)
}

// searchAll fans the query out to every adapter concurrently and waits for
// all of them. Each adapter writes only its own slot.
func (s *Service) searchAll(ctx context.Context, query string, exclude provider.ProviderName) (map[provider.ProviderName][]provider.ArtistRecord, error) {
	adapters := s.registry.Except(exclude)
	lists := make([][]provider.ArtistRecord, len(adapters))

	var g errgroup.Group
	for i, p := range adapters {
		g.Go(func() error {
			lists[i] = s.search(ctx, p, query)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make(map[provider.ProviderName][]provider.ArtistRecord, len(adapters))
	for i, p := range adapters {
		results[p.Name()] = lists[i]
	}
	return results, nil
}

func (s *Service) search(ctx context.Context, p provider.Provider, query string) []provider.ArtistRecord {
	callCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	start := time.Now()
	recs, err := p.Search(callCtx, query)
	s.metrics.ObserveAdapterCall(string(p.Name()), "search", outcome(err), time.Since(start))
	if err != nil {
		err = s.timeoutErr(callCtx, p.Name(), err)
		s.metrics.IncFanOutFailure(string(p.Name()))
		s.logger.Warn("platform search failed",
			slog.String("provider", string(p.Name())),
			slog.String("query", query),
			slog.String("error", err.Error()))
		return []provider.ArtistRecord{}
	}
	if recs == nil {
		recs = []provider.ArtistRecord{}
	}
	s.logger.Debug("platform search complete",
		slog.String("provider", string(p.Name())),
		slog.Int("results", len(recs)))
	return recs
}

// timeoutErr reports an adapter that ran past its deadline as unavailable.
func (s *Service) timeoutErr(callCtx context.Context, name provider.ProviderName, err error) error {
	if !errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return err
	}
	var unavailable *provider.ErrProviderUnavailable
	if errors.As(err, &unavailable) {
		return err
	}
	return &provider.ErrProviderUnavailable{
		Provider: name,
		Cause:    fmt.Errorf("no response within %s: %w", s.adapterTimeout, err),
	}
}

func outcome(err error) string {
	var notFound *provider.ErrNotFound
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &notFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}
