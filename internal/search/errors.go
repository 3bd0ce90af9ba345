package search

import "fmt"

// Kind classifies a pipeline failure after validation.
type Kind string

const (
	KindEmbeddingFailed   Kind = "embedding_failed"
	KindTenantUnavailable Kind = "tenant_unavailable"
	KindSearchFailed      Kind = "search_failed"
)

// PipelineError wraps the failure of one pipeline stage.
type PipelineError struct {
	Kind   Kind
	Tenant string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s (tenant %q): %v", e.Kind, e.Tenant, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
