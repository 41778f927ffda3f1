package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-verifier/internal/config"
	"github.com/DeafMist/news-verifier/internal/credibility"
	"github.com/DeafMist/news-verifier/internal/elasticsearch"
	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/trust"
)

type stubStore struct {
	healthErr error
	params    elasticsearch.SearchParams
}

func (s *stubStore) Health(context.Context) error { return s.healthErr }

func (s *stubStore) SearchNews(_ context.Context, p elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = p
	return &elasticsearch.SearchResult{Total: 1, Items: []models.NewsDocument{{ID: "a", Credibility: 7}}}, nil
}

type failingRegistry struct{}

func (failingRegistry) Trust(context.Context, string) (int, error) {
	return 0, errors.New("trust store down")
}

func newTestServer(t *testing.T, registry trust.Registry) (*server, *stubStore) {
	t.Helper()
	if registry == nil {
		var err error
		registry, err = trust.NewStatic(trust.DefaultTrust, map[string]int{"coindesk": 8})
		require.NoError(t, err)
	}

	cfg := credibility.DefaultConfig()
	cfg.SimilarityThreshold = 0.4
	engine, err := credibility.New(cfg, registry, nil)
	require.NoError(t, err)

	store := &stubStore{}
	return &server{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:    &config.API{DefaultPage: 20, MaxPage: 100, MaxVerifyItems: 3},
		es:     store,
		engine: engine,
	}, store
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body := `[
		{"title":"Bitcoin hits $100k","source_id":"coindesk","published_at":"2024-12-05T02:00:00Z"},
		{"title":"Bitcoin surpasses $100k","source_id":"decrypt","published_at":"2024-12-05T03:00:00Z"}
	]`

	rec := doRequest(srv.routes(), http.MethodPost, "/verify", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []models.VerifiedItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out, 2)

	require.Equal(t, "coindesk", out[0].SourceID)
	require.Equal(t, 9, out[0].Credibility)
	require.Equal(t, 8, out[0].CredibilityOriginal)
	require.True(t, out[0].Confident)
	require.Equal(t, 6, out[1].Credibility)
	require.True(t, out[1].CrossReference.Confirmed)
	require.Equal(t, out[0].CrossReference.ClusterID, out[1].CrossReference.ClusterID)
}

func TestVerifyEndpointRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"title":`},
		{name: "not an array", body: `{"title":"x"}`},
		{name: "too many items", body: `[{"title":"a","source_id":"s"},{"title":"b","source_id":"s"},{"title":"c","source_id":"s"},{"title":"d","source_id":"s"}]`},
		{name: "missing title", body: `[{"summary":"no headline","source_id":"s"}]`},
		{name: "missing source", body: `[{"title":"headline"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv.routes(), http.MethodPost, "/verify", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestVerifyEndpointEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(srv.routes(), http.MethodPost, "/verify", `[]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestVerifyEndpointRegistryFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingRegistry{})
	rec := doRequest(srv.routes(), http.MethodPost, "/verify", `[{"title":"x","source_id":"y"}]`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "trust store down")
}

func TestSearchEndpointParsesFilters(t *testing.T) {
	srv, store := newTestServer(t, nil)
	rec := doRequest(srv.routes(), http.MethodGet,
		"/news?q=etf&keywords=bitcoin,%20sec&min_credibility=6&confident=true&cluster=c-1&size=500&sort=credibility:desc&start=2024-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)

	p := store.params
	require.Equal(t, "etf", p.Query)
	require.Equal(t, []string{"bitcoin", "sec"}, p.Keywords)
	require.NotNil(t, p.MinCredibility)
	require.Equal(t, 6, *p.MinCredibility)
	require.True(t, p.ConfidentOnly)
	require.Equal(t, "c-1", p.ClusterID)
	require.Equal(t, 100, p.Size)
	require.Equal(t, "credibility:desc", p.Sort)
	require.NotNil(t, p.Start)
	require.Nil(t, p.End)

	var result elasticsearch.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, int64(1), result.Total)
}

func TestSearchEndpointIgnoresInvalidFilters(t *testing.T) {
	srv, store := newTestServer(t, nil)
	rec := doRequest(srv.routes(), http.MethodGet, "/news?min_credibility=eleven&confident=maybe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, store.params.MinCredibility)
	require.False(t, store.params.ConfidentOnly)
	require.Equal(t, 20, store.params.Size)
}

func TestHealthEndpoint(t *testing.T) {
	srv, store := newTestServer(t, nil)
	rec := doRequest(srv.routes(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	store.healthErr = errors.New("red")
	rec = doRequest(srv.routes(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
