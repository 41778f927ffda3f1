package elasticsearch

import (
	"strings"
	"time"
)

// Page size bounds applied by BuildSearchBody.
const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// SearchParams narrow the search endpoint query.
type SearchParams struct {
	Query          string
	Keywords       []string
	Source         string
	From           int
	Size           int
	Sort           string
	Start          *time.Time
	End            *time.Time
	MinCredibility *int
	ConfidentOnly  bool
	ClusterID      string
}

// sortable lists the fields a caller may sort by.
var sortable = map[string]struct{}{
	"timestamp":   {},
	"credibility": {},
	"_score":      {},
}

// BuildSearchBody renders params as an Elasticsearch search request body.
func BuildSearchBody(params SearchParams) map[string]any {
	if params.Size <= 0 {
		params.Size = defaultPageSize
	}
	if params.Size > maxPageSize {
		params.Size = maxPageSize
	}
	if params.From < 0 {
		params.From = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 6)

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"title^2", "text"},
			},
		})
	}

	if len(params.Keywords) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"keywords": params.Keywords},
		})
	}

	if params.Source != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"source": params.Source},
		})
	}

	if params.Start != nil || params.End != nil {
		rangeQuery := map[string]any{}
		if params.Start != nil {
			rangeQuery["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			rangeQuery["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"timestamp": rangeQuery},
		})
	}

	if params.MinCredibility != nil {
		filters = append(filters, map[string]any{
			"range": map[string]any{"credibility": map[string]any{"gte": *params.MinCredibility}},
		})
	}

	if params.ConfidentOnly {
		filters = append(filters, map[string]any{
			"term": map[string]any{"confident": true},
		})
	}

	if params.ClusterID != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"cross_reference.cluster_id": params.ClusterID},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	field, order := parseSort(params.Sort)
	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
		"sort": []map[string]any{
			{field: map[string]any{"order": order}},
		},
	}
}

// parseSort reads "field:order"; unknown fields and orders fall back to timestamp:desc.
func parseSort(raw string) (string, string) {
	field, order, _ := strings.Cut(raw, ":")
	if _, ok := sortable[field]; !ok {
		field = "timestamp"
	}
	if order != "asc" {
		order = "desc"
	}
	return field, order
}

// indexMapping keeps filterable fields as keywords so term queries match exactly.
var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":                   map[string]any{"type": "keyword"},
			"title":                map[string]any{"type": "text"},
			"text":                 map[string]any{"type": "text"},
			"timestamp":            map[string]any{"type": "date"},
			"keywords":             map[string]any{"type": "keyword"},
			"source":               map[string]any{"type": "keyword"},
			"urls":                 map[string]any{"type": "keyword"},
			"language":             map[string]any{"type": "keyword"},
			"credibility":          map[string]any{"type": "integer"},
			"credibility_original": map[string]any{"type": "integer"},
			"confident":            map[string]any{"type": "boolean"},
			"reasons":              map[string]any{"type": "text"},
			"cross_reference": map[string]any{
				"properties": map[string]any{
					"cluster_id":         map[string]any{"type": "keyword"},
					"source_count":       map[string]any{"type": "integer"},
					"unique_sources":     map[string]any{"type": "integer"},
					"confirmed":          map[string]any{"type": "boolean"},
					"has_contradictions": map[string]any{"type": "boolean"},
				},
			},
		},
	},
}
