package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Auth   string `json:"auth"`
	ReqID  string `json:"req_id"`
	Body   string `json:"body"`
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail/error":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"That date is already booked"}`))
			return
		case "/fail/msg":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"Missing Authorization Header"}`))
			return
		case "/fail/empty":
			w.WriteHeader(http.StatusInternalServerError)
			return
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(echo{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			ReqID:  r.Header.Get("X-Request-ID"),
			Body:   string(body),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AttachesTokenWhenPresent(t *testing.T) {
	srv := newEchoServer(t)
	token := "abc"
	c := New(srv.URL + "/")
	c.SetTokenSource(TokenFunc(func() string { return token }))

	var got echo
	require.NoError(t, c.Get(context.Background(), "/orders/?status=placed", &got))
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/orders/", got.Path)
	assert.Equal(t, "status=placed", got.Query)
	assert.Equal(t, "Bearer abc", got.Auth)
	assert.NotEmpty(t, got.ReqID)

	token = ""
	require.NoError(t, c.Get(context.Background(), "/cart/", &got))
	assert.Empty(t, got.Auth, "no session means no credential")
}

func TestClient_VerbsAndBodies(t *testing.T) {
	srv := newEchoServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	var got echo
	require.NoError(t, c.Post(ctx, "/cart/items", map[string]any{"product_id": 7, "qty": 2}, &got))
	assert.Equal(t, "POST", got.Method)
	assert.JSONEq(t, `{"product_id":7,"qty":2}`, got.Body)

	require.NoError(t, c.Patch(ctx, "/admin/orders/5/status", map[string]string{"status": "complete"}, &got))
	assert.Equal(t, "PATCH", got.Method)

	require.NoError(t, c.Delete(ctx, "/cart/items/7", &got))
	assert.Equal(t, "DELETE", got.Method)
	assert.Equal(t, "/cart/items/7", got.Path)

	require.NoError(t, c.Get(ctx, "/empty", &got), "empty success body is not an error")
	require.NoError(t, c.Get(ctx, "/products/", nil))
}

func TestClient_ServerMessages(t *testing.T) {
	srv := newEchoServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	err := c.Post(ctx, "/fail/error", nil, nil)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "That date is already booked", Message(err, "Checkout failed"))

	err = c.Get(ctx, "/fail/msg", nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Missing Authorization Header", Message(err, "Login failed"))

	err = c.Get(ctx, "/fail/empty", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Failed to load cart", Message(err, "Failed to load cart"))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := newEchoServer(t)
	url := srv.URL
	srv.Close()

	err := New(url).Get(context.Background(), "/products/", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Transport())
	assert.Equal(t, "Login failed", Message(err, "Login failed"))
}

func TestMessage_NonAPIError(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("x"), "fallback"))
	assert.Equal(t, 0, StatusCode(nil))
}
