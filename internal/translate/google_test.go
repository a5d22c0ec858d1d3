package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelchat/server/internal/types"
)

func TestGoogleProviderTranslateOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req googleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Q)
		assert.Equal(t, "en", req.Source)
		assert.Equal(t, "ko", req.Target)

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{
					{"translatedText": "안녕하세요"},
				},
			},
		})
	}))
	defer srv.Close()

	provider := NewGoogleProvider(srv.URL, "test-key")
	translated, err := provider.TranslateOne(context.Background(), "hello", types.LangEnglish, types.LangKorean)

	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", translated)
}

func TestGoogleProviderErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))
		defer srv.Close()

		provider := NewGoogleProvider(srv.URL, "test-key")
		_, err := provider.TranslateOne(context.Background(), "hello", types.LangEnglish, types.LangKorean)
		assert.ErrorContains(t, err, "unexpected status 403")
	})

	t.Run("empty translation list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"translations": []any{}}})
		}))
		defer srv.Close()

		provider := NewGoogleProvider(srv.URL, "")
		_, err := provider.TranslateOne(context.Background(), "hello", types.LangEnglish, types.LangKorean)
		assert.ErrorContains(t, err, "empty response")
	})

	t.Run("provider unreachable", func(t *testing.T) {
		provider := NewGoogleProvider("http://127.0.0.1:1", "")
		_, err := provider.TranslateOne(context.Background(), "hello", types.LangEnglish, types.LangKorean)
		assert.Error(t, err)
	})
}
