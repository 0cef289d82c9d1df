package chi

import (
	"time"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/domain/metadata"
)

// Error codes returned in the `code` field of error responses.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "tool_not_found"
	codeAlreadyExists    = "tool_already_exists"
	codeEmbeddingError   = "embedding_provider_error"
	codeIndexSyncFailed  = "index_sync_failed"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ToolID is set on index_sync_failed so clients can retry via reembed.
	ToolID string `json:"tool_id,omitempty"`
}

type createToolRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Metadata    *metadata.Value `json:"metadata"`
}

type patchToolRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Tags        *[]string       `json:"tags"`
	Metadata    *metadata.Value `json:"metadata"`
}

type toolResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Metadata    *metadata.Value `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type toolListResponse struct {
	Items  []toolResponse `json:"items"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResultItem struct {
	Tool  toolResponse `json:"tool"`
	Score float64      `json:"score"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

type historyEntryResponse struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Results   []string  `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}

type historyListResponse struct {
	Items []historyEntryResponse `json:"items"`
}

type purgeOrphansResponse struct {
	Purged []string `json:"purged"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func toolToResponse(t domain.Tool) toolResponse {
	resp := toolResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if !t.Metadata.IsNull() {
		m := t.Metadata
		resp.Metadata = &m
	}
	return resp
}

func fieldsFromRequest(req createToolRequest) domain.ToolFields {
	fields := domain.ToolFields{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Metadata != nil {
		fields.Metadata = *req.Metadata
	}
	return fields
}

func patchFromRequest(req patchToolRequest) domain.ToolPatch {
	return domain.ToolPatch{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	}
}

func historyToResponse(e domain.SearchHistoryEntry) historyEntryResponse {
	resp := historyEntryResponse{
		ID:        e.ID,
		Query:     e.Query,
		Results:   e.Results,
		CreatedAt: e.CreatedAt.UTC(),
	}
	if resp.Results == nil {
		resp.Results = []string{}
	}
	return resp
}
