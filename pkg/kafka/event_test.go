package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "prspares.catalog.searched", Topic(EventCatalogSearched))
	assert.Equal(t, "prspares.product.deleted", Topic(EventProductDeleted))
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(EventCatalogSearched, "iphone", "prspares-catalog", SearchedData{Search: "screen", Model: "iphone", TotalCount: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventCatalogSearched, e.Type)
	assert.Equal(t, "iphone", e.Key)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 2*time.Second)
	assert.JSONEq(t, `{"search":"screen","model":"iphone","total_count":3}`, string(e.Data))
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent(EventCatalogSearched, "k", "svc", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.searched")
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(`{"event_id":"1","event_type":"product.updated","key":"p-1","data":{"product_id":"p-1"}}`))
	require.NoError(t, err)

	var data ProductChangedData
	require.NoError(t, e.DecodeData(&data))
	assert.Equal(t, "p-1", data.ProductID)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"event_id":"1"}`))
	assert.ErrorContains(t, err, "missing event_type")
}
