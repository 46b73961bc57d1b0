// Package search maintains an optional Elasticsearch index over events for
// full-text listing queries. The database stays authoritative; the index is
// kept in sync by the consumers binary and is safe to rebuild.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"planet/internal/config"
	"planet/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "keyword",
				},
				"eventName": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"eventDescription": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
				},
				"eventOrg": map[string]interface{}{
					"type": "keyword",
				},
				"eventStatus": map[string]interface{}{
					"type": "keyword",
				},
				"eventLocation": map[string]interface{}{
					"type": "text",
				},
				"eventDate": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
				"eventPrice": map[string]interface{}{
					"type": "double",
				},
				"maxAttendees": map[string]interface{}{
					"type": "integer",
				},
				"spotsLeft": map[string]interface{}{
					"type": "integer",
				},
				"createdAt": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// IndexEvent writes or overwrites the event document.
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event *models.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: event.ID,
		Body:       strings.NewReader(string(eventJSON)),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// DeleteEvent removes the event document; a missing document is fine.
func (c *ElasticsearchClient) DeleteEvent(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: id,
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

// Search runs a full-text query over event names and descriptions, optionally
// narrowed by organizer and date range.
func (c *ElasticsearchClient) Search(ctx context.Context, term, organizer string, from, to time.Time) ([]models.Event, error) {
	searchRequest := map[string]interface{}{
		"query": c.buildSearchQuery(term, organizer, from, to),
		"sort":  c.buildSortQuery(term),
		"size":  1000,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  strings.NewReader(string(searchJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source models.Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	events := make([]models.Event, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		events[i] = hit.Source
	}

	return events, nil
}

func (c *ElasticsearchClient) buildSearchQuery(term, organizer string, from, to time.Time) map[string]interface{} {
	mustQueries := []map[string]interface{}{}

	if term != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     term,
				"fields":    []string{"eventName^2", "eventDescription"},
				"fuzziness": "AUTO",
			},
		})
	}

	if organizer != "" {
		mustQueries = append(mustQueries, map[string]interface{}{
			"term": map[string]interface{}{
				"eventOrg": organizer,
			},
		})
	}

	if !from.IsZero() || !to.IsZero() {
		dateRange := map[string]interface{}{}
		if !from.IsZero() {
			dateRange["gte"] = from.UTC().Format(time.RFC3339)
		}
		if !to.IsZero() {
			dateRange["lte"] = to.UTC().Format(time.RFC3339)
		}
		mustQueries = append(mustQueries, map[string]interface{}{
			"range": map[string]interface{}{
				"eventDate": dateRange,
			},
		})
	}

	if len(mustQueries) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": mustQueries,
		},
	}
}

func (c *ElasticsearchClient) buildSortQuery(term string) []map[string]interface{} {
	if term != "" {
		return []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"eventDate": map[string]interface{}{"order": "asc"}},
		}
	}

	return []map[string]interface{}{
		{"eventDate": map[string]interface{}{"order": "asc"}},
	}
}

// HealthCheck verifies the cluster responds.
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
