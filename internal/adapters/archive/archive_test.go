package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "uploads/e1/u1.csv", Key("e1", "u1", ".csv"))
}

func TestNop(t *testing.T) {
	url, err := Nop{}.Put(context.Background(), "k", "text/csv", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestS3PutAgainstEndpoint(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		ctype  string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewS3(context.Background(), Config{
		Bucket:    "rosters",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	url, err := a.Put(context.Background(), Key("e1", "u1", ".csv"), "text/csv", []byte("first_name,last_name\n"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/rosters/uploads/e1/u1.csv", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/rosters/uploads/e1/u1.csv", path)
	assert.Equal(t, "text/csv", ctype)
	assert.Contains(t, string(body), "first_name,last_name")
}
