// Package search keeps an optional Elasticsearch index of users, posts and jobs. Every
// query falls back to the database pattern search when the index is absent or failing.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/hirewire/backend/internal/telemetry"
)

// Index names, before the client prefix is applied
const (
	IndexUsers = "users"
	IndexPosts = "posts"
	IndexJobs  = "jobs"
)

const defaultPrefix = "hirewire-"

// Client wraps the Elasticsearch client with HireWire's indices
type Client struct {
	es     *elasticsearch.Client
	prefix string
}

// NewClient connects to url through an OpenTelemetry-instrumented transport.
func NewClient(url string) (*Client, error) {
	return newClient(url, telemetry.NewInstrumentedTransport(http.DefaultTransport))
}

func newClient(url string, transport http.RoundTripper) (*Client, error) {
	if url == "" {
		url = "http://localhost:9200"
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Client{es: es, prefix: defaultPrefix}, nil
}

func (c *Client) indexName(index string) string {
	return c.prefix + index
}

// Ping verifies the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("info", res)
	}
	return nil
}

// InitializeIndices creates any missing index with its mapping
func (c *Client) InitializeIndices(ctx context.Context) error {
	for index, mapping := range mappings {
		if err := c.createIndex(ctx, index, mapping); err != nil {
			return fmt.Errorf("failed to create %s index: %w", index, err)
		}
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, index string, mapping map[string]interface{}) error {
	name := c.indexName(index)
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err = c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

// IndexDocument upserts doc under id
func (c *Client) IndexDocument(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", index, err)
	}
	res, err := c.es.Index(c.indexName(index), bytes.NewReader(body),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s %s: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// DeleteDocument removes id; a missing document is not an error
func (c *Client) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(c.indexName(index), id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a relevance-ranked query against index and returns matching ids in rank order.
func (c *Client) Search(ctx context.Context, index, query string, limit, offset int) ([]string, error) {
	build, ok := queries[index]
	if !ok {
		return nil, fmt.Errorf("unknown search index %q", index)
	}
	body, err := json.Marshal(map[string]interface{}{
		"query":   build(query),
		"from":    offset,
		"size":    limit,
		"_source": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName(index)),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func responseError(op string, res *esapi.Response) error {
	var errResp struct {
		Error interface{} `json:"error"`
	}
	data, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == nil {
		return fmt.Errorf("elasticsearch %s failed [%s]", op, res.Status())
	}
	return fmt.Errorf("elasticsearch %s failed [%s]: %v", op, res.Status(), errResp.Error)
}
