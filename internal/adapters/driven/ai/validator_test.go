package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

func TestConfigValidator_ValidateLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewConfigValidator()

	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{}))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI, APIKey: "good", BaseURL: srv.URL,
	}))
	assert.Error(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI, APIKey: "bad", BaseURL: srv.URL,
	}))
}
