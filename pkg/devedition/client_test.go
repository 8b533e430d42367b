package devedition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/config"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
)

var testCredentials = config.Credentials{
	Email:    "dev@example.com",
	Password: "secret",
	APIKey:   "key-123",
}

func newTestClient(t *testing.T, handler http.Handler, creds config.Credentials) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Endpoint:    srv.URL + "/pty/data-discovery/v1.1/classify",
		Credentials: creds,
	})
	require.NoError(t, err)
	return client, srv
}

func TestDiscoverDecodesEntities(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pty/data-discovery/v1.1/classify", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "My SSN is 123-45-6789", req.Text)

		_ = json.NewEncoder(w).Encode(Entities{
			"SSN": {{Location: Span{StartIndex: 10, EndIndex: 21}}},
		})
	}), config.Credentials{})

	entities, err := client.Discover(context.Background(), "My SSN is 123-45-6789")
	require.NoError(t, err)
	assert.Equal(t, 1, entities.Count())
	assert.Len(t, entities["SSN"], 1)
}

func TestTransformRoutesDeriveFromClassifyEndpoint(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(transformResponse{Text: "[REDACTED]"})
	}), config.Credentials{})

	out, err := client.Redact(context.Background(), "secret text")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", out)
	assert.Equal(t, "/pty/data-discovery/v1.1/redact", gotPath)
}

func TestProtectSendsCredentialHeaders(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "dev@example.com", r.Header.Get("x-email"))
		_ = json.NewEncoder(w).Encode(transformResponse{Text: "[TOKEN]abc[/TOKEN]"})
	}), testCredentials)

	out, err := client.Protect(context.Background(), "sensitive")
	require.NoError(t, err)
	assert.Equal(t, "[TOKEN]abc[/TOKEN]", out)
}

func TestProtectFailsFastWithoutCredentials(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), config.Credentials{})

	_, err := client.Protect(context.Background(), "sensitive")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredentialOrAuth))
	assert.False(t, called, "no network call expected without credentials")

	_, err = client.Unprotect(context.Background(), "[TOKEN]abc[/TOKEN]")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredentialOrAuth))
	assert.False(t, called)
}

func TestRedactWorksWithoutCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(transformResponse{Text: "[PERSON]"})
	}), config.Credentials{})

	out, err := client.Redact(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "[PERSON]", out)
}

func TestStatusCodesMapToTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrCredentialOrAuth},
		{"forbidden", http.StatusForbidden, domain.ErrCredentialOrAuth},
		{"server error", http.StatusInternalServerError, domain.ErrTransport},
		{"bad gateway", http.StatusBadGateway, domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}), testCredentials)

			_, err := client.Redact(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "status %d should map to %v, got %v", tt.status, tt.want, err)
		})
	}
}

func TestNamedEntityMapSentWithTransforms(t *testing.T) {
	var got transformRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(transformResponse{Text: "[PERSON]"})
	}), config.Credentials{})

	client.MapNamedEntity("PERSON|COMPANY_NAME", "PERSON")
	_, err := client.Redact(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "PERSON", got.NamedEntityMap["PERSON|COMPANY_NAME"])
}

func TestNewClientRejectsBadEndpoint(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "not a url"})
	require.Error(t, err)
}
