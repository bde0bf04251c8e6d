package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wayfarer/internal/agent"
	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// fakeAnswerer records the request and returns a canned response.
type fakeAnswerer struct {
	resp *agent.Response
	err  error
	last agent.Request
}

func (f *fakeAnswerer) Handle(_ context.Context, req agent.Request) (*agent.Response, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestServer(fake *fakeAnswerer) *Server {
	return New(":0", fake, nil)
}

func postAnswer(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnswerEndpoint(t *testing.T) {
	fake := &fakeAnswerer{resp: &agent.Response{
		RequestID:  "req-1",
		Intent:     agent.IntentRAGQuery,
		Answer:     "You need a visa [1].",
		Confidence: 0.8,
		Sources: []agent.Source{
			{ID: "visa-jp", Title: "Japan visa basics", Score: 0.016, Category: store.CategoryVisa, Country: "Japan"},
		},
	}}
	srv := newTestServer(fake)

	rec := postAnswer(t, srv, `{"query":"Do I need a visa for Japan?","country":"Japan","category":"visa","top_k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp agent.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "You need a visa [1].", resp.Answer)
	assert.Equal(t, agent.IntentRAGQuery, resp.Intent)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "visa-jp", resp.Sources[0].ID)

	// The request is forwarded with normalized filters.
	assert.Equal(t, "Japan", fake.last.Country)
	assert.Equal(t, store.CategoryVisa, fake.last.Category)
	assert.Equal(t, 3, fake.last.TopK)
}

func TestAnswerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"missing query", `{}`},
		{"blank query", `{"query":"   "}`},
		{"unknown category", `{"query":"visa rules","category":"weather"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeAnswerer{})
			rec := postAnswer(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var er errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
			assert.NotEmpty(t, er.Error)
		})
	}
}

func TestAnswerGenerationFailureIsBadGateway(t *testing.T) {
	fake := &fakeAnswerer{
		err: errors.GenerationError("model call failed after retries", nil),
	}
	srv := newTestServer(fake)

	rec := postAnswer(t, srv, `{"query":"japan visa"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var er errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	assert.Equal(t, errors.ErrCodeGenerationFailed, er.Code)
}

func TestAnswerInternalFailure(t *testing.T) {
	fake := &fakeAnswerer{
		err: errors.New(errors.ErrCodeInternal, "boom", nil),
	}
	srv := newTestServer(fake)

	rec := postAnswer(t, srv, `{"query":"japan visa"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeAnswerer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(&fakeAnswerer{resp: &agent.Response{Answer: "hi"}})

	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(`{"query":"visa"}`))
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeAnswerer{})

	req := httptest.NewRequest(http.MethodGet, "/v1/answer", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
