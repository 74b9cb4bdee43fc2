package device_api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(`{"numRelays": 2, "status": [{"relay": 0, "state": "on"}, {"relay": 1, "state": "off"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(&Config{})
	require.NoError(t, err)

	info, err := client.Info(context.Background(), hostOf(srv))
	require.NoError(t, err)

	assert.Equal(t, 2, info.NumRelays)
	assert.Equal(t, []RelayStatus{{Relay: 0, State: "on"}, {Relay: 1, State: "off"}}, info.Status)
}

func TestSetRelay(t *testing.T) {
	var gotPath, gotState string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}

		gotPath = r.URL.Path
		gotState = r.URL.Query().Get("state")
		_, _ = w.Write([]byte("Relay 1 turned on"))
	}))
	defer srv.Close()

	client, _ := NewClient(&Config{})

	msg, err := client.SetRelay(context.Background(), hostOf(srv), 1, "on")
	require.NoError(t, err)

	assert.Equal(t, "Relay 1 turned on", msg)
	assert.Equal(t, "/relay/1", gotPath)
	assert.Equal(t, "on", gotState)
}

func TestSetRelay_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad relay", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, _ := NewClient(&Config{})

	_, err := client.SetRelay(context.Background(), hostOf(srv), 9, "on")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, "bad relay", statusErr.Body)
}

func TestSetRelay_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, _ := NewClient(&Config{ControlTimeout: 20 * time.Millisecond})

	_, err := client.SetRelay(context.Background(), hostOf(srv), 0, "off")
	assert.Error(t, err)
}

func TestInfo_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client, _ := NewClient(&Config{})

	_, err := client.Info(context.Background(), hostOf(srv))
	assert.Error(t, err)
}
