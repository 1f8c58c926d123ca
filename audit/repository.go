// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexName = "audit-events"

// Repository is the storage behind the audit Service.
type Repository interface {
	Append(ctx context.Context, event Event) error
	Query(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	CountActions(ctx context.Context, userID string, actions []string, since time.Time) (int, error)
	KnownSource(ctx context.Context, userID, source string, since, before time.Time) (bool, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a repository against the given
// Elasticsearch URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// Append indexes one audit event. Events are never updated or deleted.
func (r *ElasticsearchRepository) Append(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: event.ID,
		Body:       strings.NewReader(string(data)),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing audit event: %s", res.String())
	}

	return nil
}

// Query searches audit events matching the filter, newest first.
func (r *ElasticsearchRepository) Query(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": r.mustClauses(filter),
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"from": offset,
		"size": limit,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching audit events: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	events := make([]Event, len(hits))
	for i, hit := range hits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &events[i])
	}

	return events, nil
}

// CountActions counts events by the user with any of the given actions
// since the cutoff.
func (r *ElasticsearchRepository) CountActions(ctx context.Context, userID string, actions []string, since time.Time) (int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"user_id": userID}},
					map[string]interface{}{"terms": map[string]interface{}{"action": actions}},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{"gte": since.Format(time.RFC3339)},
						},
					},
				},
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, err
	}

	res, err := r.esClient.Count(
		r.esClient.Count.WithContext(ctx),
		r.esClient.Count.WithIndex(indexName),
		r.esClient.Count.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error counting audit events: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return 0, err
	}

	count, ok := rmap["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected count response: %v", rmap)
	}
	return int(count), nil
}

// KnownSource reports whether the user's history contains the source
// identifier inside [since, before). The exclusive upper bound lets the
// caller leave the event under evaluation out of its own history.
func (r *ElasticsearchRepository) KnownSource(ctx context.Context, userID, source string, since, before time.Time) (bool, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"user_id": userID}},
					map[string]interface{}{"term": map[string]interface{}{"source": source}},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": since.Format(time.RFC3339),
								"lt":  before.Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
		"size": 1,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return false, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, fmt.Errorf("error searching audit events: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return false, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	return len(hits) > 0, nil
}

func (r *ElasticsearchRepository) mustClauses(filter Filter) []interface{} {
	must := []interface{}{}
	if filter.UserID != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"user_id": filter.UserID}})
	}
	if filter.Action != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"action": filter.Action}})
	}
	if filter.ObjectType != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"object_type": filter.ObjectType}})
	}
	timeRange := map[string]interface{}{}
	if !filter.Since.IsZero() {
		timeRange["gte"] = filter.Since.Format(time.RFC3339)
	}
	if !filter.Until.IsZero() {
		timeRange["lte"] = filter.Until.Format(time.RFC3339)
	}
	if len(timeRange) > 0 {
		must = append(must, map[string]interface{}{"range": map[string]interface{}{"timestamp": timeRange}})
	}
	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}
	return must
}
