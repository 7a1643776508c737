package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func TestAppendProducesKeyedJSON(t *testing.T) {
	producer := &fakeProducer{}
	store := New(producer, "odyssey.audit")

	userID := id.NewUserID()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := audit.NewEvent(audit.EventIdentityLinked, userID)
	event.Timestamp = ts
	event.Provider = "google"

	require.NoError(t, store.Append(context.Background(), event))
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "odyssey.audit", rec.Topic)
	assert.Equal(t, userID.String(), string(rec.Key))

	var got Record
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, "identity_linked", got.Action)
	assert.Equal(t, "compliance", got.Category)
	assert.Equal(t, "google", got.Provider)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestAppendOmitsNilUser(t *testing.T) {
	producer := &fakeProducer{}
	store := New(producer, "odyssey.audit")

	event := audit.NewEvent(audit.EventAuthFailed, id.UserID{})
	event.Reason = "invalid_refresh_token"
	require.NoError(t, store.Append(context.Background(), event))

	var got map[string]any
	require.NoError(t, json.Unmarshal(producer.records[0].Value, &got))
	assert.NotContains(t, got, "user_id")
	assert.Equal(t, "invalid_refresh_token", got["reason"])
}

func TestAppendPropagatesProduceError(t *testing.T) {
	store := New(&fakeProducer{err: errors.New("broker down")}, "odyssey.audit")

	err := store.Append(context.Background(), audit.NewEvent(audit.EventTokenIssued, id.NewUserID()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
