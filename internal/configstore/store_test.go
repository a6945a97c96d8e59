package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/order-supervisor/internal/remote"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

type fakeProfileAPI struct {
	profile   *remote.Profile
	fetchErr  error
	updateErr error
	patches   []remote.Profile
}

func (f *fakeProfileAPI) FetchProfile(ctx context.Context) (*remote.Profile, error) {
	return f.profile, f.fetchErr
}

func (f *fakeProfileAPI) UpdateProfile(ctx context.Context, patch remote.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patch)
	return nil
}

type fakeCache struct {
	groups  map[string]json.RawMessage
	loadErr error
	saveErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{groups: map[string]json.RawMessage{}}
}

func (f *fakeCache) SaveConfigGroup(ctx context.Context, group string, payload json.RawMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.groups[group] = payload
	return nil
}

func (f *fakeCache) LoadConfigGroups(ctx context.Context) (map[string]json.RawMessage, error) {
	return f.groups, f.loadErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string   { return &s }
func intPtr(n int) *int         { return &n }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(v float64) *float64 { return &v }

func TestLoad_DefaultsOnly(t *testing.T) {
	store := NewStore(&fakeProfileAPI{}, newFakeCache(), discardLogger())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.TotalUnits)
	assert.Equal(t, 1, cfg.MaxParallelism)
	assert.Equal(t, domain.FallbackSequential, cfg.FallbackMode)
	assert.InDelta(t, 26.994880, cfg.Location.Latitude, 1e-9)
	assert.InDelta(t, 75.774836, cfg.Location.Longitude, 1e-9)
	assert.True(t, cfg.Location.SelectionEnabled)
	assert.Equal(t, "chinu juice center", cfg.Location.SearchQuery)
}

func TestLoad_ProfileOverridesDefaults(t *testing.T) {
	api := &fakeProfileAPI{profile: &remote.Profile{
		Name:               strPtr("Asha"),
		HouseFlatNo:        strPtr("12B"),
		Landmark:           strPtr("Near the water tank"),
		TotalOrders:        intPtr(4),
		MaxParallelWindows: intPtr(2),
		OrderAll:           boolPtr(true),
		Latitude:           f64Ptr(12.5),
		Products: []domain.Product{
			{URL: "https://shop/item", Quantity: 1},
		},
	}}
	store := NewStore(api, newFakeCache(), discardLogger())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Asha", cfg.Identity.Name)
	assert.Equal(t, 4, cfg.TotalUnits)
	assert.Equal(t, 2, cfg.MaxParallelism)
	assert.Equal(t, domain.FallbackAll, cfg.FallbackMode)
	assert.InDelta(t, 12.5, cfg.Location.Latitude, 1e-9)
	// fields the profile left unset keep their defaults
	assert.InDelta(t, 75.774836, cfg.Location.Longitude, 1e-9)
	require.Len(t, cfg.Products, 1)
}

func TestLoad_CacheWinsOverProfile(t *testing.T) {
	api := &fakeProfileAPI{profile: &remote.Profile{
		Name:        strPtr("Asha"),
		TotalOrders: intPtr(4),
	}}
	cache := newFakeCache()
	cache.groups[GroupIdentity] = json.RawMessage(`{"name":"Ravi","house_flat_no":"7","landmark":"Opposite the park"}`)
	cache.groups[GroupRun] = json.RawMessage(`{"total_orders":9,"max_parallel_windows":3}`)

	store := NewStore(api, cache, discardLogger())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Ravi", cfg.Identity.Name)
	assert.Equal(t, "7", cfg.Identity.HouseFlatNo)
	assert.Equal(t, 9, cfg.TotalUnits)
	assert.Equal(t, 3, cfg.MaxParallelism)
}

func TestLoad_ProfileFetchFailureTolerated(t *testing.T) {
	api := &fakeProfileAPI{fetchErr: errors.New("remote down")}
	cache := newFakeCache()
	cache.groups[GroupIdentity] = json.RawMessage(`{"name":"Ravi","house_flat_no":"7","landmark":"Opposite the park"}`)

	store := NewStore(api, cache, discardLogger())

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ravi", cfg.Identity.Name)
}

func TestLoad_CacheFailureSurfaced(t *testing.T) {
	cache := newFakeCache()
	cache.loadErr = errors.New("db gone")

	store := NewStore(&fakeProfileAPI{}, cache, discardLogger())

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "local config cache")
}

func TestLoad_CorruptGroupSurfaced(t *testing.T) {
	cache := newFakeCache()
	cache.groups[GroupProducts] = json.RawMessage(`{not json`)

	store := NewStore(&fakeProfileAPI{}, cache, discardLogger())

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "products cache")
}

func TestSaveIdentity_WritesRemoteThenCache(t *testing.T) {
	api := &fakeProfileAPI{}
	cache := newFakeCache()
	store := NewStore(api, cache, discardLogger())

	identity := domain.Identity{Name: "Asha", HouseFlatNo: "12B", Landmark: "Near the water tank"}
	require.NoError(t, store.SaveIdentity(context.Background(), identity))

	require.Len(t, api.patches, 1)
	assert.Equal(t, "Asha", *api.patches[0].Name)

	var cached domain.Identity
	require.NoError(t, json.Unmarshal(cache.groups[GroupIdentity], &cached))
	assert.Equal(t, identity, cached)
}

func TestSaveIdentity_RemoteFailureLeavesCacheUntouched(t *testing.T) {
	api := &fakeProfileAPI{updateErr: errors.New("remote rejected")}
	cache := newFakeCache()
	store := NewStore(api, cache, discardLogger())

	err := store.SaveIdentity(context.Background(), domain.Identity{Name: "Asha"})
	assert.ErrorContains(t, err, "identity settings")
	assert.Empty(t, cache.groups)
}

func TestSaveRunParams_CacheFailureStillReported(t *testing.T) {
	api := &fakeProfileAPI{}
	cache := newFakeCache()
	cache.saveErr = errors.New("disk full")
	store := NewStore(api, cache, discardLogger())

	err := store.SaveRunParams(context.Background(), domain.RunParams{TotalUnits: 2, MaxParallelism: 1})
	assert.ErrorContains(t, err, "caching failed")
	// remote already accepted the patch
	require.Len(t, api.patches, 1)
	assert.Equal(t, 2, *api.patches[0].TotalOrders)
}

func TestSaveProducts_PatchCarriesList(t *testing.T) {
	api := &fakeProfileAPI{}
	store := NewStore(api, newFakeCache(), discardLogger())

	products := []domain.Product{
		{URL: "https://shop/a", Quantity: 1},
		{URL: "https://shop/b", Quantity: 3},
	}
	require.NoError(t, store.SaveProducts(context.Background(), products))

	require.Len(t, api.patches, 1)
	assert.Equal(t, products, api.patches[0].Products)
}
