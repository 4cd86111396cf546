package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// SearchIndex maintains a lightweight project document index for free-text
// lookup. All failures are soft; callers fall back to the database.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndex(addresses []string, index string) (*SearchIndex, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no elasticsearch addresses configured")
	}
	if index == "" {
		index = "projects"
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &SearchIndex{client: client, index: index}, nil
}

type projectDocument struct {
	Title        string `json:"title"`
	ProjectType  string `json:"project_type"`
	Description  string `json:"description"`
	LocationName string `json:"location_name"`
	Status       string `json:"status"`
}

func (s *SearchIndex) Index(ctx context.Context, project *Project) error {
	doc := projectDocument{
		Title:        project.Title,
		ProjectType:  project.ProjectType,
		Description:  project.Description,
		LocationName: project.LocationName,
		Status:       project.Status,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: project.ID.String(),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to index project: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.Status())
	}
	return nil
}

func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	var buf bytes.Buffer
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "description", "location_name", "project_type"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search request failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
