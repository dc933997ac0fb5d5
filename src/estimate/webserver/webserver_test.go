package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/claimworks/estimate-api/src/estimate/config"
	"github.com/claimworks/estimate-api/src/estimate/estimator"
	"github.com/claimworks/estimate-api/src/estimate/ratelimit"
	"github.com/claimworks/estimate-api/src/estimate/tools"
	"github.com/claimworks/estimate-api/src/estimate/types"
	"github.com/claimworks/estimate-api/src/shared/ai"
)

const testKey = "secret-key"

type fakeClient func(ctx context.Context, instruction string, opts ai.Options) (string, error)

func (f fakeClient) Research(ctx context.Context, instruction string, opts ai.Options) (string, error) {
	return f(ctx, instruction, opts)
}

func okClient() fakeClient {
	return func(ctx context.Context, instruction string, opts ai.Options) (string, error) {
		return "research findings", nil
	}
}

func newTestRouter(t *testing.T, client ai.Client, limit int, rdb *redis.Client) (*gin.Engine, *ratelimit.Limiter) {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	cfg := config.Config{
		APIKeys:            []string{testKey},
		MaxItemsPerRequest: 25,
	}
	limiter := ratelimit.New(rdb, limit, time.Minute, log)

	tcfg := tools.Config{Timeout: time.Second, Model: "quick", DeepModel: "deep"}
	items := estimator.NewItemEstimator(
		tools.NewLabor(client, tcfg),
		tools.NewMaterial(client, tcfg),
		tools.NewRepairInstructions(client, tcfg),
		log,
	)
	orch := estimator.NewOrchestrator(limiter, items, 2, log)
	return New(cfg, orch, limiter, log), limiter
}

func postEstimate(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-KEY", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validBody = `{
	"inventoryItems": [
		{"itemId": "test-1", "itemName": "Water heater", "category": "plumbing", "currentCondition": "Poor", "location": "Basement", "originalCost": 800}
	],
	"userLocation": {"city": "Seattle", "region": "WA"},
	"currency": "USD"
}`

func TestEstimate_Success(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 100, nil)

	w := postEstimate(router, testKey, validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.EstimateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "test-1", resp.Results[0].ItemID)
	assert.Equal(t, types.StatusSucceeded, resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].LaborFindings)
	assert.NotEmpty(t, resp.Results[0].MaterialFindings)
	assert.NotEmpty(t, resp.Results[0].RepairFindings)
	assert.False(t, resp.RateLimited)
}

func TestEstimate_PartialToolFailureStillReturns200(t *testing.T) {
	client := fakeClient(func(ctx context.Context, instruction string, opts ai.Options) (string, error) {
		if strings.Contains(instruction, "labor rates") {
			return "", context.DeadlineExceeded
		}
		return "research findings", nil
	})
	router, _ := newTestRouter(t, client, 100, nil)

	w := postEstimate(router, testKey, validBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.EstimateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, types.StatusPartiallyFailed, resp.Results[0].Status)
	assert.Empty(t, resp.Results[0].LaborFindings)
	assert.Equal(t, "Timeout", resp.Results[0].Errors[tools.ToolLabor])
}

func TestEstimate_MissingKey(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 100, nil)
	w := postEstimate(router, "", validBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEstimate_InvalidKey(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 100, nil)
	w := postEstimate(router, "wrong-key", validBody)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEstimate_AuthPrecedesValidation(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 100, nil)
	w := postEstimate(router, "wrong-key", `{"not": "an estimate request"}`)
	assert.Equal(t, http.StatusForbidden, w.Code, "bad key plus bad body must fail on auth")
}

func TestEstimate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty item list", `{"inventoryItems": [], "userLocation": {"city": "Seattle", "region": "WA"}, "currency": "USD"}`},
		{"missing location city", `{"inventoryItems": [{"itemId": "a", "itemName": "Sink", "category": "plumbing", "currentCondition": "Fair"}], "userLocation": {"region": "WA"}, "currency": "USD"}`},
		{"unsupported currency", strings.Replace(validBody, `"USD"`, `"DOLLARS"`, 1)},
		{"unknown condition", strings.Replace(validBody, `"Poor"`, `"Terrible"`, 1)},
		{"negative original cost", strings.Replace(validBody, `800`, `-1`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, okClient(), 100, nil)
			w := postEstimate(router, testKey, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestEstimate_StripsMarkupFromFreeTextFields(t *testing.T) {
	var mu sync.Mutex
	var instructions []string
	client := fakeClient(func(ctx context.Context, instruction string, opts ai.Options) (string, error) {
		mu.Lock()
		instructions = append(instructions, instruction)
		mu.Unlock()
		return "research findings", nil
	})
	router, _ := newTestRouter(t, client, 100, nil)

	body := `{
		"inventoryItems": [
			{"itemId": "test-1", "itemName": "Water <script>x</script>heater", "category": "plumbing<b>!</b>", "currentCondition": "Poor", "location": "<i>Basement</i>"}
		],
		"userLocation": {"city": "Seattle", "region": "WA"},
		"currency": "USD"
	}`
	w := postEstimate(router, testKey, body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, instructions, 3)
	for _, instruction := range instructions {
		assert.NotContains(t, instruction, "<script>")
		assert.NotContains(t, instruction, "<b>")
		assert.NotContains(t, instruction, "<i>")
		assert.Contains(t, instruction, "plumbing")
	}
}

func TestEstimate_DuplicateItemIDs(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 100, nil)
	body := `{
		"inventoryItems": [
			{"itemId": "a", "itemName": "Sink", "category": "plumbing", "currentCondition": "Fair"},
			{"itemId": "a", "itemName": "Faucet", "category": "plumbing", "currentCondition": "Poor"}
		],
		"userLocation": {"city": "Seattle", "region": "WA"},
		"currency": "USD"
	}`
	w := postEstimate(router, testKey, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate itemId")
}

func TestEstimate_RateLimited(t *testing.T) {
	router, _ := newTestRouter(t, okClient(), 1, nil)

	first := postEstimate(router, testKey, validBody)
	require.Equal(t, http.StatusOK, first.Code)

	second := postEstimate(router, testKey, validBody)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	var resp struct {
		RateLimited       bool `json:"rateLimited"`
		RetryAfterSeconds int  `json:"retryAfterSeconds"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.RateLimited)
	assert.Greater(t, resp.RetryAfterSeconds, 0)
}

func TestHealth_ReportsStoreReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	router, _ := newTestRouter(t, okClient(), 100, rdb)

	get := func() map[string]interface{} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	body := get()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["isStoreReady"])

	mr.Close()
	body = get()
	assert.Equal(t, "ok", body["status"], "degraded is still serving")
	assert.Equal(t, false, body["isStoreReady"])
}
