package remote

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, config Config, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config.BaseURL = srv.URL
	client, err := NewClient(config, testLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{}, testLogger())
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	c, err := NewClient(Config{BaseURL: "https://example.test/"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/api/billing-schedules/import", c.url)
}

func TestClient_Import(t *testing.T) {
	t.Run("posts the request and decodes the response", func(t *testing.T) {
		var got map[string]any
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, DefaultImportPath, r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Empty(t, r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"totalRows":2,"createdCount":1,"updatedCount":1,"failedCount":0,"isAsync":false}`)
		})

		resp, err := client.Import(context.Background(), model.NewImportRequest("a,b\n1,2", ""))
		require.NoError(t, err)

		assert.Equal(t, "a,b\n1,2", got["csvContent"])
		assert.Nil(t, got["projectId"])
		assert.Equal(t, 2, resp.TotalRows)
		assert.Equal(t, 2, resp.Processed())
		assert.NotNil(t, resp.Errors)
		assert.Nil(t, resp.SuccessCount)
	})

	t.Run("scoped response fields", func(t *testing.T) {
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"totalRows":3,"createdCount":1,"failedCount":2,"successCount":1,"isSuccess":false,
				"errors":[{"rowNumber":3,"errorMessage":"Invalid Bill Rate","rowData":"x"},{"rowNumber":4}]}`)
		})

		resp, err := client.Import(context.Background(), model.NewImportRequest("a", "a01XX"))
		require.NoError(t, err)

		require.NotNil(t, resp.SuccessCount)
		assert.Equal(t, 1, *resp.SuccessCount)
		require.NotNil(t, resp.IsSuccess)
		assert.False(t, *resp.IsSuccess)
		require.Len(t, resp.Errors, 2)
		assert.Equal(t, "Invalid Bill Rate", resp.Errors[0].Message)
		assert.Equal(t, "Unknown error", resp.Errors[1].Message)
	})

	t.Run("signs a service token", func(t *testing.T) {
		config := Config{SigningKey: "secret", Issuer: "schedule-importer", Audience: "billing"}
		client := newTestClient(t, config, func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return []byte("secret"), nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("billing"), jwt.WithIssuer("schedule-importer"))
			require.NoError(t, err)
			assert.True(t, token.Valid)
			assert.NotEmpty(t, claims.ID)

			io.WriteString(w, `{}`)
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))
		require.NoError(t, err)
	})

	t.Run("error body with message", func(t *testing.T) {
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"message":"Row 4: invalid rate","pageErrors":[{"message":"page"}]}`)
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))

		var remoteErr *Error
		require.True(t, errors.As(err, &remoteErr))
		assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
		assert.Equal(t, "Row 4: invalid rate", remoteErr.BackendMessage())
		assert.Equal(t, []string{"page"}, remoteErr.PageErrors())
	})

	t.Run("error body as array", func(t *testing.T) {
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `[{"message":"Insufficient access","errorCode":"INSUFFICIENT_ACCESS"}]`)
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))

		var remoteErr *Error
		require.True(t, errors.As(err, &remoteErr))
		assert.Empty(t, remoteErr.BackendMessage())
		assert.Equal(t, []string{"Insufficient access"}, remoteErr.PageErrors())
	})

	t.Run("unreadable error body", func(t *testing.T) {
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "<html>bad gateway</html>")
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))
		assert.ErrorIs(t, err, ErrInvalidBody)
		assert.Equal(t, "remote import failed with status 502", err.Error())
	})

	t.Run("unreadable success body", func(t *testing.T) {
		client := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))
		assert.ErrorIs(t, err, ErrInvalidBody)
	})

	t.Run("cancelled context while throttled", func(t *testing.T) {
		client := newTestClient(t, Config{RateLimitPerSecond: 0.001, Burst: 1}, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{}`)
		})

		_, err := client.Import(context.Background(), model.NewImportRequest("a", ""))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = client.Import(ctx, model.NewImportRequest("a", ""))
		assert.Error(t, err)
	})
}
