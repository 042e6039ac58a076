package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTurnstileVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewTurnstileVerifier(srv.URL, "shh", time.Second, zaptest.NewLogger(t))

	ok, err := v.Verify(context.Background(), "good", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Verify(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestTurnstileVerifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewTurnstileVerifier(srv.URL, "shh", time.Second, zaptest.NewLogger(t))
	ok, err := v.Verify(context.Background(), "good", "")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNoopVerifier(t *testing.T) {
	ok, err := NoopVerifier{}.Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, ok)
}
