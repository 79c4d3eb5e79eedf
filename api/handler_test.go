package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"signal-engine/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(nil, zap.NewNop()).Register(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateSignals(t *testing.T) {
	r := newRouter()

	var ticks []model.Tick
	for _, p := range []float64{100, 100, 100, 50} {
		ticks = append(ticks, model.Tick{Symbol: "AAPL", Price: p})
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/signals", gin.H{
		"strategy":    "windowed",
		"window_size": 3,
		"ticks":       ticks,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		WindowSize int `json:"window_size"`
		Summary    struct {
			Ticks int `json:"ticks"`
			Sells int `json:"sells"`
		} `json:"summary"`
		Results []struct {
			Signals []string `json:"signals"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.WindowSize)
	assert.Equal(t, 4, resp.Summary.Ticks)
	assert.Equal(t, 1, resp.Summary.Sells)
	require.Len(t, resp.Results, 4)
	assert.Empty(t, resp.Results[2].Signals)
	assert.Equal(t, []string{"SELL"}, resp.Results[3].Signals)
}

func TestGenerateSignals_BadRequests(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing strategy", gin.H{"window_size": 3}},
		{"unknown strategy", gin.H{"strategy": "ema", "window_size": 3}},
		{"negative window", gin.H{"strategy": "naive", "window_size": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/signals", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRunProfile(t *testing.T) {
	r := newRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/profile", gin.H{
		"window_size": 5,
		"tick_counts": []int{50, 500},
		"strategies":  []string{"windowed"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep model.ProfileReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Len(t, rep.Results, 2)
	assert.Equal(t, "windowed", rep.Results[0].Strategy)

	w = doJSON(t, r, http.MethodPost, "/api/v1/profile", gin.H{
		"window_size": 5,
		"tick_counts": []int{maxProfileTicks + 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/profile", gin.H{
		"window_size": 5,
		"tick_counts": []int{0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTicks_NoStore(t *testing.T) {
	w := doJSON(t, newRouter(), http.MethodGet, "/api/v1/ticks/btc-usdt", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
