package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/internal/domain/entity"
)

type recorded struct {
	method, path string
	body         map[string]any
}

func fakeES(t *testing.T, status int, reply string) (*elasticsearch.Client, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(b, &body)
		mu.Lock()
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, &calls
}

func TestIndexUser(t *testing.T) {
	t.Parallel()
	es, calls := fakeES(t, http.StatusCreated, `{"result":"created"}`)
	idx := NewUserIndex(es, "users")

	u := &entity.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: entity.RoleUser, Password: "secret-hash", CreatedAt: time.Now()}
	require.NoError(t, idx.IndexUser(context.Background(), u))

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPut, c.method)
	assert.True(t, strings.HasPrefix(c.path, "/users/_doc/u1"), c.path)
	assert.Equal(t, "alice@example.com", c.body["email"])
	assert.NotContains(t, c.body, "password")
}

func TestSearchUsers(t *testing.T) {
	t.Parallel()
	es, calls := fakeES(t, http.StatusOK, `{"hits":{"hits":[{"_id":"u1","_source":{"id":"u1","name":"Alice","email":"alice@example.com","role":"user","created_at":"2026-10-18T10:00:00Z"}}]}}`)
	idx := NewUserIndex(es, "users")

	hits, err := idx.SearchUsers(context.Background(), "alice", 500)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alice@example.com", hits[0].Email)
	assert.Equal(t, entity.RoleUser, hits[0].Role)
	assert.Equal(t, 2026, hits[0].CreatedAt.Year())

	require.Len(t, *calls, 1)
	assert.Equal(t, "/users/_search", (*calls)[0].path)
	assert.EqualValues(t, defaultSize, (*calls)[0].body["size"], "oversized requests fall back to the default")
}

func TestSearchUsersError(t *testing.T) {
	t.Parallel()
	es, _ := fakeES(t, http.StatusInternalServerError, `{"error":"boom"}`)
	_, err := NewUserIndex(es, "users").SearchUsers(context.Background(), "x", 5)
	assert.Error(t, err)
}
