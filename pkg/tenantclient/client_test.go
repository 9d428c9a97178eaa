package tenantclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL:     url,
		Timeout:     time.Second,
		ReadRetries: 2,
		RetryDelay:  time.Millisecond,
	}).WithTokenFunc(func(context.Context) string { return "operator-token" })
}

func TestClient_ChangeTier_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tenant/change_tier", r.URL.Path)
		assert.Equal(t, "Bearer operator-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pro", body["new_product_id"])
		assert.Equal(t, float64(12), body["tenant_id"])

		w.Write([]byte(`{"data":{"use_billing":true}}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).ChangeTier(context.Background(), 12, "pro")

	require.NoError(t, err)
	assert.True(t, out.UseBilling)
}

func TestClient_ChangeTier_NullData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).ChangeTier(context.Background(), 1, "basic")

	require.NoError(t, err)
	assert.False(t, out.UseBilling)
}

func TestClient_ChangeTier_ErrorFieldOnSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"tenant is locked"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChangeTier(context.Background(), 1, "basic")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusOK, se.Status)
	assert.Equal(t, "tenant is locked", se.Message)
}

func TestClient_ChangeTier_ConflictIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"message":"change already in progress"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChangeTier(context.Background(), 1, "basic")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Status)
	assert.Equal(t, "change already in progress", se.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ChangeTier_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChangeTier(context.Background(), 1, "basic")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ChangeTier_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.ChangeTier(context.Background(), 1, "basic")

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestClient_Decommission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tenant/decommission", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL).Decommission(context.Background(), 3))
}

func TestClient_GetTenant_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant/8", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"tenant_id":8,"name":"shop","status":"activated","product_id":"pro","app_id":2,
			"resource_information":{"serving_url":"https://shop.example.com"}}}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).GetTenant(context.Background(), 8)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "pro", out.ProductID)
	require.NotNil(t, out.Resources)
	assert.Equal(t, "https://shop.example.com", *out.Resources.ServingURL)
}

func TestClient_MissingBaseURL(t *testing.T) {
	_, err := New(Config{}).ChangeTier(context.Background(), 1, "basic")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenant service url missing")
}
