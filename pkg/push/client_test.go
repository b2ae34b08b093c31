package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNotify_FiltersMalformedRecipients(t *testing.T) {
	var got pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "app1", 50, quietLogger())

	err := client.Notify(context.Background(), []string{
		"994501112233",
		"not-a-number",
		"+994551234567", // plus prefix is not a digit string
		"994705850808",
	}, "test message")

	require.NoError(t, err)
	assert.Equal(t, []string{"994501112233", "994705850808"}, got.Recipients)
	assert.Equal(t, "app1", got.AppID)
	assert.Equal(t, "test message", got.Message)
}

func TestNotify_AllMalformedIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "", 50, quietLogger())

	err := client.Notify(context.Background(), []string{"abc", ""}, "msg")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestNotify_Batches(t *testing.T) {
	var batches [][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req.Recipients)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "", 2, quietLogger())

	err := client.Notify(context.Background(), []string{
		"994501112233", "994551234567", "994705850808",
	}, "msg")

	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
}

func TestNotify_GatewayErrorReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "", 50, quietLogger())

	err := client.Notify(context.Background(), []string{"994501112233"}, "msg")
	assert.Error(t, err)
}

func TestNotify_ContinuesAfterFailedBatch(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "", 1, quietLogger())

	err := client.Notify(context.Background(), []string{"994501112233", "994551234567"}, "msg")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
