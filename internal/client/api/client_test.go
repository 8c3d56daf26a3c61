package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL, 0)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	client = NewClient(baseURL, 5*time.Second)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}

// TestClient_Login проверяет успешный логин
func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "operator", req.Username)
		assert.Equal(t, "secret", req.Password)

		_ = json.NewEncoder(w).Encode(api.LoginResponse{
			Status: true,
			Token:  "token-1",
			User: &api.UserProfile{
				Username: "operator",
				Name:     "Operator",
				Detil:    []api.RoleAssignment{{RoleName: "SA"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.Login(context.Background(), api.LoginRequest{Username: "operator", Password: "secret"})

	require.NoError(t, err)
	assert.True(t, resp.Status)
	assert.Equal(t, "token-1", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "SA", resp.User.Detil[0].RoleName)
}

// TestClient_Errors проверяет разбор ошибочных ответов
func TestClient_Errors(t *testing.T) {
	tests := []struct {
		target         error
		responseBody   string
		name           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:           "unauthorized with message",
			statusCode:     http.StatusUnauthorized,
			responseBody:   `{"status":false,"error":"Unauthorized","message":"invalid credentials"}`,
			expectedErrMsg: "server error (401): invalid credentials",
			target:         ErrUnauthorized,
		},
		{
			name:           "forbidden without body",
			statusCode:     http.StatusForbidden,
			responseBody:   "",
			expectedErrMsg: "request failed with status 403",
			target:         ErrUnauthorized,
		},
		{
			name:           "locked out",
			statusCode:     http.StatusTooManyRequests,
			responseBody:   `{"status":false,"message":"too many failed attempts"}`,
			expectedErrMsg: "server error (429): too many failed attempts",
			target:         ErrTooManyRequests,
		},
		{
			name:           "internal error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   "Internal Server Error",
			expectedErrMsg: "request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := NewClient(server.URL, 0)
			_, err := client.Me(context.Background(), "token")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.statusCode, statusErr.StatusCode)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				assert.NotErrorIs(t, err, ErrUnauthorized)
			}
		})
	}
}

// TestClient_Me проверяет передачу bearer токена
func TestClient_Me(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":true,"user":{"username":"operator","nama":"Budi","detil":[{"role_name":"QO","apps_id":"APP001"}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.Me(context.Background(), "token-1")

	require.NoError(t, err)
	assert.True(t, resp.Status)
	assert.Equal(t, "Budi", resp.User.Name)
	assert.Equal(t, "APP001", resp.User.Detil[0].AppsID)
}

// TestClient_Logout проверяет запрос выхода
func TestClient_Logout(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	require.NoError(t, client.Logout(context.Background(), "token-1"))
	assert.True(t, called)
}

// TestClient_FetchCollection проверяет, что тело возвращается без разбора
func TestClient_FetchCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/outgoing/eahout", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id_cert":1}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	body, err := client.FetchCollection(context.Background(), "token-1", models.SourceEahOut)

	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id_cert":1}]}`, string(body))
}

// TestClient_FetchDocument проверяет загрузку поля документа
func TestClient_FetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/incoming/ephytoin/H-1/xmlsigned":
			_, _ = w.Write([]byte(`{"xmlsigned":"<Signed/>"}`))
		case "/incoming/ecertin/7/xml":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	ctx := context.Background()

	content, err := client.FetchDocument(ctx, "t", models.SourceEphytoIn, "H-1", "xmlsigned")
	require.NoError(t, err)
	assert.Equal(t, "<Signed/>", content)

	content, err = client.FetchDocument(ctx, "t", models.SourceEcertIn, "7", "xml")
	require.NoError(t, err)
	assert.Empty(t, content)

	_, err = client.FetchDocument(ctx, "t", models.SourceEcertIn, "8", "xml")
	assert.Error(t, err)
}

// TestClient_ContextCanceled проверяет, что отмененный контекст прерывает запрос
func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, 0)
	_, err := client.FetchCollection(ctx, "t", models.SourceEcertIn)
	assert.ErrorIs(t, err, context.Canceled)
}
