package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/order-supervisor/internal/supervisor"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Balance(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/balance", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"balance":42.5}`))
	}))

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 42.5, balance, 1e-9)
}

func TestClient_BalanceFailureEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"account locked"}`))
	}))

	_, err := client.Balance(context.Background())
	assert.ErrorContains(t, err, "account locked")
}

func TestClient_PriceUnsetIsZero(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))

	price, err := client.Price(context.Background())
	require.NoError(t, err)
	assert.Zero(t, price)
}

func TestClient_StartJobPayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/automation/start", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	}))

	cfg := domain.JobConfig{
		Identity:       domain.Identity{Name: "Asha", HouseFlatNo: "12B", Landmark: "Near the water tank"},
		TotalUnits:     3,
		MaxParallelism: 2,
		RetryOnce:      true,
		Location: domain.Location{
			Latitude:         26.994880,
			Longitude:        75.774836,
			SelectionEnabled: true,
			SearchQuery:      "chinu juice center",
			TargetLabel:      "Chinu Juice Center, Jaswant Nagar, mod, Khatipura, Jaipur, Rajasthan, India",
		},
	}
	plan := supervisor.ExecutionPlan{
		Products: []domain.Product{{URL: "https://shop/item", Quantity: 2}},
		OrderAll: true,
	}

	require.NoError(t, client.StartJob(context.Background(), cfg, plan))

	assert.Equal(t, "Asha", got["name"])
	assert.Equal(t, "12B", got["house_flat_no"])
	assert.Equal(t, float64(3), got["total_orders"])
	assert.Equal(t, float64(2), got["max_parallel_windows"])
	assert.Equal(t, true, got["order_all"])
	assert.Equal(t, true, got["retry_orders"])
	assert.Equal(t, true, got["select_location"])
	assert.Equal(t, "chinu juice center", got["search_input"])

	products, ok := got["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	item := products[0].(map[string]any)
	assert.Equal(t, "https://shop/item", item["url"])
	assert.Equal(t, float64(2), item["quantity"])
}

func TestClient_StartJobRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"another run is active"}`))
	}))

	err := client.StartJob(context.Background(), domain.JobConfig{}, supervisor.ExecutionPlan{})

	var rejErr *domain.StartRejectedError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, "another run is active", rejErr.Reason)
}

func TestClient_StopJobFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/automation/stop", r.URL.Path)
		w.Write([]byte(`{"success":false,"error":"no run to stop"}`))
	}))

	err := client.StopJob(context.Background())

	var stopErr *domain.StopFailedError
	require.ErrorAs(t, err, &stopErr)
	assert.Equal(t, "no run to stop", stopErr.Reason)
}

func TestClient_JobStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/automation/status", r.URL.Path)
		w.Write([]byte(`{"is_running":true,"success":3,"failure":1,"all_products_failed":false}`))
	}))

	status, err := client.JobStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, 3, status.SuccessCount)
	assert.Equal(t, 1, status.FailureCount)
	assert.False(t, status.AllProductsFailed)
}

func TestClient_ServerErrorSurfaced(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.JobStatus(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestClient_FetchProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		w.Write([]byte(`{"success":true,"profile":{"name":"Asha","total_orders":4,"products":[{"url":"https://shop/a","quantity":1}]}}`))
	}))

	profile, err := client.FetchProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Asha", *profile.Name)
	assert.Equal(t, 4, *profile.TotalOrders)
	require.Len(t, profile.Products, 1)
	assert.Nil(t, profile.Landmark)
}

func TestClient_UpdateProfileSendsOnlySetFields(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	}))

	name := "Ravi"
	require.NoError(t, client.UpdateProfile(context.Background(), Profile{Name: &name}))

	assert.Equal(t, map[string]any{"name": "Ravi"}, got)
}

func TestClient_FetchReports(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/report", r.URL.Path)
		w.Write([]byte(`{"success":[{"order_id":"o1","product":"https://shop/a"}],"failed":[]}`))
	}))

	reports, err := client.FetchReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports.Success, 1)
	assert.Equal(t, "o1", reports.Success[0].OrderID)
	assert.Empty(t, reports.Failed)
}
