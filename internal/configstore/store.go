// Package configstore merges the job configuration from three layers
// in increasing priority: built-in defaults, the remote profile, and
// the local cache of the most recent explicit edits. Saves are scoped
// per settings group so a failed group never rolls back another.
package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/quickcart/order-supervisor/internal/remote"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// Settings group names. Each group has its own save transaction.
const (
	GroupIdentity = "identity"
	GroupProducts = "products"
	GroupLocation = "location"
	GroupRun      = "run"
)

// ProfileAPI is the remote profile surface. Implemented by
// remote.Client.
type ProfileAPI interface {
	FetchProfile(ctx context.Context) (*remote.Profile, error)
	UpdateProfile(ctx context.Context, patch remote.Profile) error
}

// CacheStore is the durable local cache. Implemented by
// storage.Storage.
type CacheStore interface {
	SaveConfigGroup(ctx context.Context, group string, payload json.RawMessage) error
	LoadConfigGroups(ctx context.Context) (map[string]json.RawMessage, error)
}

// Store loads and saves the job configuration.
type Store struct {
	remote ProfileAPI
	cache  CacheStore
	logger *slog.Logger
}

// NewStore creates a config store.
func NewStore(remote ProfileAPI, cache CacheStore, logger *slog.Logger) *Store {
	return &Store{
		remote: remote,
		cache:  cache,
		logger: logger,
	}
}

// Defaults returns the built-in configuration layer.
func Defaults() domain.JobConfig {
	return domain.JobConfig{
		TotalUnits:     1,
		MaxParallelism: 1,
		FallbackMode:   domain.FallbackSequential,
		Location: domain.Location{
			Latitude:         26.994880,
			Longitude:        75.774836,
			SelectionEnabled: true,
			SearchQuery:      "chinu juice center",
			TargetLabel:      "Chinu Juice Center, Jaswant Nagar, mod, Khatipura, Jaipur, Rajasthan, India",
		},
	}
}

// Load merges defaults, the remote profile and the local cache. A
// profile fetch failure is tolerated: the merge falls through to the
// remaining layers with a warning.
func (s *Store) Load(ctx context.Context) (domain.JobConfig, error) {
	cfg := Defaults()

	profile, err := s.remote.FetchProfile(ctx)
	if err != nil {
		s.logger.Warn("remote profile unavailable, using defaults and local cache",
			slog.String("error", err.Error()),
		)
	} else if profile != nil {
		applyProfile(&cfg, profile)
	}

	groups, err := s.cache.LoadConfigGroups(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load local config cache: %w", err)
	}
	if err := applyCache(&cfg, groups); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// SaveIdentity writes the identity group to the remote profile and, on
// success, to the local cache.
func (s *Store) SaveIdentity(ctx context.Context, identity domain.Identity) error {
	patch := remote.Profile{
		Name:        &identity.Name,
		HouseFlatNo: &identity.HouseFlatNo,
		Landmark:    &identity.Landmark,
	}
	return s.saveGroup(ctx, GroupIdentity, patch, identity)
}

// SaveProducts writes the product list group.
func (s *Store) SaveProducts(ctx context.Context, products []domain.Product) error {
	patch := remote.Profile{Products: products}
	return s.saveGroup(ctx, GroupProducts, patch, products)
}

// SaveLocation writes the location group.
func (s *Store) SaveLocation(ctx context.Context, loc domain.Location) error {
	patch := remote.Profile{
		Latitude:       &loc.Latitude,
		Longitude:      &loc.Longitude,
		SelectLocation: &loc.SelectionEnabled,
		SearchInput:    &loc.SearchQuery,
		LocationText:   &loc.TargetLabel,
	}
	return s.saveGroup(ctx, GroupLocation, patch, loc)
}

// SaveRunParams writes the run settings group (units, parallelism,
// retry flag, fallback mode).
func (s *Store) SaveRunParams(ctx context.Context, params domain.RunParams) error {
	orderAll := params.FallbackMode == domain.FallbackAll
	patch := remote.Profile{
		TotalOrders:        &params.TotalUnits,
		MaxParallelWindows: &params.MaxParallelism,
		RetryOrders:        &params.RetryOnce,
		OrderAll:           &orderAll,
	}
	return s.saveGroup(ctx, GroupRun, patch, params)
}

// saveGroup runs one group's save transaction: remote write first,
// local cache only after the remote accepted. A remote failure leaves
// the cache untouched and names the group that failed.
func (s *Store) saveGroup(ctx context.Context, group string, patch remote.Profile, cached any) error {
	if err := s.remote.UpdateProfile(ctx, patch); err != nil {
		return fmt.Errorf("failed to persist %s settings: %w", group, err)
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode %s settings: %w", group, err)
	}
	if err := s.cache.SaveConfigGroup(ctx, group, payload); err != nil {
		// Remote already has the new value; the stale cache heals on
		// the next save or load.
		s.logger.Error("remote save succeeded but local cache update failed",
			slog.String("group", group),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("saved %s settings remotely but caching failed: %w", group, err)
	}

	s.logger.Info("settings saved", slog.String("group", group))
	return nil
}

// applyProfile overlays remote profile values onto the config.
func applyProfile(cfg *domain.JobConfig, p *remote.Profile) {
	if p.Name != nil {
		cfg.Identity.Name = *p.Name
	}
	if p.HouseFlatNo != nil {
		cfg.Identity.HouseFlatNo = *p.HouseFlatNo
	}
	if p.Landmark != nil {
		cfg.Identity.Landmark = *p.Landmark
	}
	if p.TotalOrders != nil {
		cfg.TotalUnits = *p.TotalOrders
	}
	if p.MaxParallelWindows != nil {
		cfg.MaxParallelism = *p.MaxParallelWindows
	}
	if p.RetryOrders != nil {
		cfg.RetryOnce = *p.RetryOrders
	}
	if p.OrderAll != nil && *p.OrderAll {
		cfg.FallbackMode = domain.FallbackAll
	}
	if len(p.Products) > 0 {
		cfg.Products = p.Products
	}
	if p.Latitude != nil {
		cfg.Location.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		cfg.Location.Longitude = *p.Longitude
	}
	if p.SelectLocation != nil {
		cfg.Location.SelectionEnabled = *p.SelectLocation
	}
	if p.SearchInput != nil {
		cfg.Location.SearchQuery = *p.SearchInput
	}
	if p.LocationText != nil {
		cfg.Location.TargetLabel = *p.LocationText
	}
}

// applyCache overlays locally cached groups, the highest-priority
// layer.
func applyCache(cfg *domain.JobConfig, groups map[string]json.RawMessage) error {
	if raw, ok := groups[GroupIdentity]; ok {
		if err := json.Unmarshal(raw, &cfg.Identity); err != nil {
			return fmt.Errorf("corrupt identity cache: %w", err)
		}
	}
	if raw, ok := groups[GroupProducts]; ok {
		if err := json.Unmarshal(raw, &cfg.Products); err != nil {
			return fmt.Errorf("corrupt products cache: %w", err)
		}
	}
	if raw, ok := groups[GroupLocation]; ok {
		if err := json.Unmarshal(raw, &cfg.Location); err != nil {
			return fmt.Errorf("corrupt location cache: %w", err)
		}
	}
	if raw, ok := groups[GroupRun]; ok {
		var params domain.RunParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("corrupt run settings cache: %w", err)
		}
		cfg.TotalUnits = params.TotalUnits
		cfg.MaxParallelism = params.MaxParallelism
		cfg.RetryOnce = params.RetryOnce
		if params.FallbackMode != "" {
			cfg.FallbackMode = params.FallbackMode
		}
	}
	return nil
}
