package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinctIDPrefersUser(t *testing.T) {
	orgID := uuid.New()

	userHeaders := RequestHeaders{UserID: "user-1", OrganizationID: orgID}
	assert.Equal(t, "user-1", userHeaders.DistinctID())

	apiKeyHeaders := RequestHeaders{OrganizationID: orgID, APIKeyID: "key-1"}
	assert.Equal(t, "api_key_"+orgID.String(), apiKeyHeaders.DistinctID())
}

func TestGroupsCarryOrganization(t *testing.T) {
	orgID := uuid.New()
	headers := RequestHeaders{OrganizationID: orgID}

	assert.Equal(t, map[string]string{"organization": orgID.String()}, headers.Groups())
}

func TestContextualTrackMergesRequestMetadata(t *testing.T) {
	cs := newCaptureServer(t)
	service := newTestService(t, cs, nil)
	contextual := NewContextualService(service)

	orgID := uuid.New()
	headers := RequestHeaders{
		UserID:         "user-1",
		OrganizationID: orgID,
		ClientName:     "weft-cli",
		ClientVersion:  "1.4.0",
	}

	contextual.Track(headers, "collection_created", map[string]interface{}{
		"collection_id": "col-1",
		// Caller properties win over the request metadata on conflict.
		"client_name": "override",
	})
	service.Close()

	events := cs.events()
	require.Len(t, events, 1)
	assert.Equal(t, "collection_created", events[0].Event)
	assert.Equal(t, "user-1", events[0].Properties["distinct_id"])
	assert.Equal(t, orgID.String(), events[0].Properties["organization_id"])
	assert.Equal(t, "override", events[0].Properties["client_name"])
	assert.Equal(t, "1.4.0", events[0].Properties["client_version"])

	groups, ok := events[0].Properties["$groups"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, orgID.String(), groups["organization"])
}

func TestTrackAPICall(t *testing.T) {
	cs := newCaptureServer(t)
	service := newTestService(t, cs, nil)
	contextual := NewContextualService(service)

	headers := RequestHeaders{UserID: "user-1", OrganizationID: uuid.New()}
	contextual.TrackAPICall(headers, "/source-connections", "POST", 201, 42*time.Millisecond)
	service.Close()

	events := cs.events()
	require.Len(t, events, 1)
	assert.Equal(t, "api_call", events[0].Event)
	assert.Equal(t, "/source-connections", events[0].Properties["endpoint"])
	assert.Equal(t, "POST", events[0].Properties["method"])
	assert.EqualValues(t, 201, events[0].Properties["status_code"])
	assert.EqualValues(t, 42, events[0].Properties["duration_ms"])
}

func TestTrackSearchQueryOmitsQueryText(t *testing.T) {
	cs := newCaptureServer(t)
	service := newTestService(t, cs, nil)
	contextual := NewContextualService(service)

	headers := RequestHeaders{UserID: "user-1", OrganizationID: uuid.New()}
	collectionID := uuid.New()
	contextual.TrackSearchQuery(headers, collectionID, 23, 7, 15*time.Millisecond)
	service.Close()

	events := cs.events()
	require.Len(t, events, 1)
	assert.Equal(t, "search_query", events[0].Event)
	assert.Equal(t, collectionID.String(), events[0].Properties["collection_id"])
	assert.EqualValues(t, 23, events[0].Properties["query_length"])
	assert.EqualValues(t, 7, events[0].Properties["result_count"])
	assert.NotContains(t, events[0].Properties, "query")
}
