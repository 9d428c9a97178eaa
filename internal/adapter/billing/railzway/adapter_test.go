package railzway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/billing"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/credential"
	"github.com/railzwaylabs/tier-orchestrator/pkg/billingclient"
	"github.com/railzwaylabs/tier-orchestrator/pkg/testhelper"
)

func newAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAdapter(billingclient.New(billingclient.Config{
		CatalogURL: server.URL,
		APIURL:     server.URL,
		Timeout:    time.Second,
		RetryDelay: time.Millisecond,
	}))
}

func TestFetchCatalog_NormalizesBothShapes(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"legacy","app_id":3,"tier_name":"Starter","tier_index":1,
			 "price":[{"id":"p","product_id":"x","price":12.5,"reccurence":"monthly"}]},
			{"id":"current","app_id":3,"tier_name":"Starter",
			 "prices":[{"id":"p","product_id":"x","price_value":12.5,"recurrence":"monthly"}]}
		]}`))
	})

	products, err := a.FetchCatalog(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, products[0].Prices, products[1].Prices)
	assert.Equal(t, 12.5, products[0].Prices[0].Value)
	assert.Equal(t, "monthly", *products[0].Prices[0].Recurrence)

	assert.True(t, products[0].Ranked())
	assert.False(t, products[1].Ranked(), "missing tier_index must not default to 0")
}

func TestFetchCatalog_PrefersCurrentFields(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"both","tier_index":2,
			"price":[{"id":"old","price":1}],
			"prices":[{"id":"new","price_value":2,"price":1,"recurrence":"yearly","reccurence":"monthly"}]}]}`))
	})

	products, err := a.FetchCatalog(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, products[0].Prices, 1)
	assert.Equal(t, "new", *products[0].Prices[0].ID)
	assert.Equal(t, 2.0, products[0].Prices[0].Value)
	assert.Equal(t, "yearly", *products[0].Prices[0].Recurrence)
}

func TestFetchCatalog_FailuresAreUnavailable(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := a.FetchCatalog(context.Background(), 1)

	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
}

func TestApplyTierChange_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   billing.ErrorKind
	}{
		{"rejected", http.StatusUnprocessableEntity, billing.KindRejected},
		{"server", http.StatusInternalServerError, billing.KindServer},
		{"unauthorized", http.StatusUnauthorized, billing.KindUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"error":"nope"}`))
			})

			_, err := a.ApplyTierChange(context.Background(), "org", 1, nil, "upgrade")

			var se *billing.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.kind, se.Kind)
			assert.Equal(t, tc.status, se.Code)
			assert.Equal(t, tc.kind == billing.KindUnauthorized, errors.Is(err, credential.ErrUnauthorized))
		})
	}
}

func TestApplyTierChange_Redirect(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"redirect_url":"https://pay.example.com"}}`))
	})

	out, err := a.ApplyTierChange(context.Background(), "org", 1, testhelper.StringPtr("p1"), "upgrade")

	require.NoError(t, err)
	assert.True(t, out.PendingPayment())
	assert.Equal(t, "https://pay.example.com", out.RedirectURL)
}

func TestApplyTierChange_OpenBreakerIsUnavailable(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	a := NewAdapter(billingclient.New(billingclient.Config{
		APIURL:                server.URL,
		Timeout:               time.Second,
		CircuitBreakerEnabled: true,
		CBFailureThreshold:    1,
		CBMinRequests:         1,
		CBRecoveryTime:        time.Minute,
	}))

	_, err := a.ApplyTierChange(context.Background(), "org", 1, nil, "upgrade")
	assert.Equal(t, billing.KindServer, billing.KindOf(err))

	_, err = a.ApplyTierChange(context.Background(), "org", 1, nil, "upgrade")
	assert.Equal(t, billing.KindUnavailable, billing.KindOf(err))
	assert.Equal(t, 1, calls)
}
