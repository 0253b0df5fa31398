package huggingface

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compario/backend/internal/domain"
)

func newTestClient(modelURL string, fallbacks ...string) *Client {
	if fallbacks == nil {
		fallbacks = []string{}
	}
	return NewClient(Config{
		APIToken:     "hf-token",
		ModelURL:     modelURL,
		FallbackURLs: fallbacks,
		MaxRetries:   3,
	}, zerolog.Nop())
}

func providerMessage(t *testing.T, err error) string {
	t.Helper()
	var providerErr *domain.ProviderError
	require.True(t, errors.As(err, &providerErr), "expected provider error, got %v", err)
	return providerErr.Message
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	assert.Equal(t, DefaultModelURL, client.modelURL)
	assert.Equal(t, DefaultFallbackURLs, client.fallbackURLs)
	assert.Equal(t, 3, client.maxRetries)
	assert.Equal(t, domain.ProviderHuggingFace, client.Name())
}

func TestDetectProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "raw-image", string(body))

		_, _ = w.Write([]byte(`[
			{"label":"laptop, laptop computer","score":0.87654},
			{"label":"notebook, notebook computer","score":0.05},
			{"label":"desktop computer","score":0.02},
			{"label":"space bar","score":0.01},
			{"label":"mouse, computer mouse","score":0.01},
			{"label":"monitor","score":0.005}
		]`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).DetectProduct(context.Background(), []byte("raw-image"))
	require.NoError(t, err)

	assert.Equal(t, "Laptop", result.DisplayName)
	assert.Equal(t, 87.65, result.Confidence)
	assert.Len(t, result.Labels, 5)
	assert.Equal(t, "laptop, laptop computer", result.Labels[0])
	assert.Equal(t, domain.ProviderHuggingFace, result.Source)
	assert.Nil(t, result.Brand)
}

func TestDetectProduct_NoTokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"label":"water_bottle","score":0.5}]`))
	}))
	defer server.Close()

	client := NewClient(Config{ModelURL: server.URL, FallbackURLs: []string{}}, zerolog.Nop())
	result, err := client.DetectProduct(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Bottle", result.DisplayName)
}

func TestDetectProduct_ModelWarmingUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
			return
		}
		_, _ = w.Write([]byte(`[{"label":"cellular telephone","score":0.9}]`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).DetectProduct(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Smartphone", result.DisplayName)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDetectProduct_StillLoadingAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DetectProduct(context.Background(), []byte("img"))
	assert.Equal(t, msgStillLoading, providerMessage(t, err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDetectProduct_FallbackModel(t *testing.T) {
	var primaryCalls, fallbackCalls int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryCalls, 1)
		w.WriteHeader(http.StatusGone)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fallbackCalls, 1)
		_, _ = w.Write([]byte(`[{"label":"backpack, back pack, knapsack","score":0.7}]`))
	}))
	defer fallback.Close()

	client := newTestClient(primary.URL, fallback.URL)
	result, err := client.DetectProduct(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Backpack", result.DisplayName)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbackCalls))

	// Fallback state does not leak into the next detection
	_, err = client.DetectProduct(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&primaryCalls))
}

func TestDetectProduct_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error object", http.StatusBadRequest, `{"error":"Invalid image"}`, "Hugging Face API error: Invalid image"},
		{"error string", http.StatusUnauthorized, `"Authorization header is invalid"`, "Hugging Face API error: Authorization header is invalid"},
		{"plain body", http.StatusInternalServerError, `upstream exploded`, "Hugging Face API error: upstream exploded"},
		{"empty body", http.StatusBadGateway, ``, "Hugging Face API error: API returned status 502"},
		{"missing model without fallback", http.StatusNotFound, `{"error":"Model not found"}`, "Hugging Face API error: Model not found"},
		{"empty result list", http.StatusOK, `[]`, msgEmptyResponse},
		{"unexpected shape", http.StatusOK, `{"generated_text":"hi"}`, msgUnexpectedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).DetectProduct(context.Background(), []byte("img"))
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrProviderCallFailed)
			assert.Equal(t, tt.wantMsg, providerMessage(t, err))
		})
	}
}

func TestDetectProduct_Timeout(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Config{
		ModelURL:     server.URL,
		FallbackURLs: []string{},
		MaxRetries:   2,
		Timeout:      20 * time.Millisecond,
	}, zerolog.Nop())

	_, err := client.DetectProduct(context.Background(), []byte("img"))
	assert.Equal(t, msgTimeout, providerMessage(t, err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDetectProduct_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).DetectProduct(context.Background(), []byte("img"))
	assert.Contains(t, providerMessage(t, err), "Failed to connect to Hugging Face API")
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"laptop, laptop computer", "Laptop"},
		{"notebook, notebook computer", "Notebook, notebook computer"},
		{"cellular telephone, cellular phone, cellphone", "Smartphone"},
		{"iPod", "MP3 Player"},
		{"television, television system", "TV"},
		{"digital watch", "Watch"},
		{"sunglasses, dark glasses, shades", "Sunglasses"},
		{"a water_bottle", "Bottle"},
		{"running_shoe", "Running Shoe"},
		{"an espresso_maker", "Espresso Maker"},
		{"banana", "Banana"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLabel(tt.label))
		})
	}
}
