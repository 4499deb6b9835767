package db

// SearchResponse is the decoded engine response to a search request.
type SearchResponse struct {
	Took         int            `json:"took"`
	TimedOut     bool           `json:"timed_out"`
	Hits         Hits           `json:"hits"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}

// Hits is the hit envelope of a search response.
type Hits struct {
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score"`
	Hits     []Hit    `json:"hits"`
}

// Total is the matching document count.
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// Hit is a single matching document.
type Hit struct {
	Index  string         `json:"_index,omitempty"`
	ID     string         `json:"_id"`
	Score  *float64       `json:"_score"`
	Source map[string]any `json:"_source"`
	Sort   []any          `json:"sort,omitempty"`
}

// ScoreValue returns the hit score, 0 when the engine did not compute one.
func (h Hit) ScoreValue() float64 {
	if h.Score == nil {
		return 0
	}
	return *h.Score
}
