package risk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySuccess(t *testing.T) {
	var gotToken, gotIP, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSecret = r.FormValue("secret")
		gotToken = r.FormValue("response")
		gotIP = r.FormValue("remoteip")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"score":0.87,"action":"trial_start"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "provider-secret", time.Second)
	score, err := client.Verify(context.Background(), "client-token", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, 0.87, score)
	assert.Equal(t, "provider-secret", gotSecret)
	assert.Equal(t, "client-token", gotToken)
	assert.Equal(t, "203.0.113.7", gotIP)
}

func TestVerifyFailedCheckReportsZeroWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "provider-secret", time.Second)
	score, err := client.Verify(context.Background(), "bad-token", "")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestVerifyProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(srv.URL, "provider-secret", time.Second)
			_, err := client.Verify(context.Background(), "token", "")
			require.Error(t, err)
		})
	}
}

func TestVerifyUnconfigured(t *testing.T) {
	client := NewClient("", "secret", 0)
	_, err := client.Verify(context.Background(), "token", "")
	require.Error(t, err)
}
