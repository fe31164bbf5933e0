package analytics

import (
	"time"

	"github.com/google/uuid"
)

// RequestHeaders carries the caller identity and client metadata extracted
// from an API request. UserID is empty for API-key authenticated requests.
type RequestHeaders struct {
	UserID         string
	OrganizationID uuid.UUID
	APIKeyID       string
	RequestID      string
	SessionID      string
	UserAgent      string
	ClientName     string
	ClientVersion  string
}

// DistinctID resolves the analytics identity for the request. Requests
// made by a user track under the user id; API-key requests track under a
// synthetic id derived from the organization.
func (h RequestHeaders) DistinctID() string {
	if h.UserID != "" {
		return h.UserID
	}
	return "api_key_" + h.OrganizationID.String()
}

// Groups returns the group association for the request, keyed by group
// type. Every request belongs to exactly one organization.
func (h RequestHeaders) Groups() map[string]string {
	return map[string]string{
		"organization": h.OrganizationID.String(),
	}
}

// ContextualService emits events enriched with per-request identity and
// client metadata.
type ContextualService struct {
	service *Service
}

// NewContextualService wraps a Service with request-scoped enrichment.
func NewContextualService(service *Service) *ContextualService {
	return &ContextualService{service: service}
}

// Track emits an event attributed to the request identity. Base request
// properties are merged under the caller's properties, which win on
// conflict.
func (c *ContextualService) Track(headers RequestHeaders, name string, properties map[string]interface{}) {
	merged := make(map[string]interface{}, len(properties)+7)
	merged["organization_id"] = headers.OrganizationID.String()
	if headers.ClientName != "" {
		merged["client_name"] = headers.ClientName
	}
	if headers.ClientVersion != "" {
		merged["client_version"] = headers.ClientVersion
	}
	if headers.APIKeyID != "" {
		merged["api_key_id"] = headers.APIKeyID
	}
	if headers.RequestID != "" {
		merged["request_id"] = headers.RequestID
	}
	if headers.SessionID != "" {
		merged["session_id"] = headers.SessionID
	}
	if headers.UserAgent != "" {
		merged["user_agent"] = headers.UserAgent
	}
	for key, value := range properties {
		merged[key] = value
	}

	c.service.TrackEvent(name, headers.DistinctID(), merged, headers.Groups())
}

// TrackAPICall records a single API operation invocation.
func (c *ContextualService) TrackAPICall(headers RequestHeaders, endpoint, method string, status int, duration time.Duration) {
	c.Track(headers, "api_call", map[string]interface{}{
		"endpoint":    endpoint,
		"method":      method,
		"status_code": status,
		"duration_ms": duration.Milliseconds(),
	})
}

// TrackSearchQuery records a search against a synced collection. The query
// text itself is never sent, only its length.
func (c *ContextualService) TrackSearchQuery(headers RequestHeaders, collectionID uuid.UUID, queryLength, resultCount int, duration time.Duration) {
	c.Track(headers, "search_query", map[string]interface{}{
		"collection_id": collectionID.String(),
		"query_length":  queryLength,
		"result_count":  resultCount,
		"duration_ms":   duration.Milliseconds(),
	})
}
