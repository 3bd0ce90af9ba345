package models

// SearchResult is one matched row of a tenant index. Similarity carries the engine's
// _distance value unchanged.
type SearchResult struct {
	ID            int64   `json:"id"`
	Source        string  `json:"source"`
	Similarity    float64 `json:"similarity"`
	AskMethodCode string  `json:"ask_method_code"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message,omitempty"`
	Details []FieldViolation `json:"details,omitempty"`
}
