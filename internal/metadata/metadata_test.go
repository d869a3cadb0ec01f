package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressIsDeterministic(t *testing.T) {
	doc := Document{
		Name:  "Cube #1",
		Image: "https://img.example/1.png",
		Attributes: []Attribute{
			{TraitType: "color", Value: "red"},
		},
	}

	a, err := Address(doc)
	require.NoError(t, err)
	b, err := Address(doc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "meta:"))
	assert.Len(t, strings.TrimPrefix(a, "meta:"), 64)

	doc.Name = "Cube #2"
	c, err := Address(doc)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc := Document{Name: "Cube #1", Description: "first cube"}
	address, err := s.Put(ctx, doc)
	require.NoError(t, err)

	got, err := s.Get(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, doc, *got)

	_, err = s.Get(ctx, "meta:deadbeef")
	assert.Error(t, err)
}

func TestHTTPStorePutAndGet(t *testing.T) {
	objects := make(map[string][]byte)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimPrefix(r.URL.Path, "/v1/objects/")
		switch r.Method {
		case http.MethodPut:
			var doc Document
			require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			raw, _ := json.Marshal(doc)
			objects[address] = raw
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			raw, ok := objects[address]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(raw)
		}
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL)
	ctx := context.Background()

	doc := Document{Name: "Cube #1"}
	address, err := s.Put(ctx, doc)
	require.NoError(t, err)

	want, err := Address(doc)
	require.NoError(t, err)
	assert.Equal(t, want, address)

	got, err := s.Get(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)
}
