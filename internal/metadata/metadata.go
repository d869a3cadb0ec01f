// Package metadata stores NFT and collection metadata documents in an
// external object store and addresses them by content hash. The address
// is the keccak-256 digest of the canonical JSON document, so equal
// documents always resolve to the same URI.
package metadata

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/cubecore/chainops/internal/retry"
)

// Document is an NFT metadata document in the common token-URI shape.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Store persists metadata documents and returns their content address.
type Store interface {
	Put(ctx context.Context, doc Document) (string, error)
	Get(ctx context.Context, address string) (*Document, error)
}

// Address returns the content address for a document: "meta:" plus the
// hex keccak-256 of its canonical JSON encoding.
func Address(doc Document) (string, error) {
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode metadata document: %w", err)
	}
	digest := sha3.NewLegacyKeccak256()
	digest.Write(canonical)
	return "meta:" + hex.EncodeToString(digest.Sum(nil)), nil
}

// HTTPStore talks to the object-store service. Objects are immutable:
// a PUT of an existing address is a no-op on the server.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPStore) Put(ctx context.Context, doc Document) (string, error) {
	address, err := Address(doc)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode metadata document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(address), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", retry.Transient(fmt.Errorf("metadata store: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return address, nil
	default:
		return "", retry.Transient(fmt.Errorf("metadata store status %d", resp.StatusCode))
	}
}

func (s *HTTPStore) Get(ctx context.Context, address string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("metadata store: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("metadata %s not found", address)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Transient(fmt.Errorf("metadata store status %d", resp.StatusCode))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &doc, nil
}

func (s *HTTPStore) objectURL(address string) string {
	return s.baseURL + "/v1/objects/" + address
}

// MemoryStore keeps documents in memory. Test default.
type MemoryStore struct {
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Put(_ context.Context, doc Document) (string, error) {
	address, err := Address(doc)
	if err != nil {
		return "", err
	}
	s.docs[address] = doc
	return address, nil
}

func (s *MemoryStore) Get(_ context.Context, address string) (*Document, error) {
	doc, ok := s.docs[address]
	if !ok {
		return nil, fmt.Errorf("metadata %s not found", address)
	}
	return &doc, nil
}
