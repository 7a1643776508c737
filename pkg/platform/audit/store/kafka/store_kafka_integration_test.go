//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
)

func TestDialAndProduceAgainstRedpanda(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v23.3.3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	const topic = "odyssey.audit.test"
	store, closeFn, err := Dial(ctx, []string{broker}, topic)
	require.NoError(t, err)
	defer closeFn()

	userID := id.NewUserID()
	require.NoError(t, store.Append(ctx, audit.NewEvent(audit.EventUserCreated, userID)))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var got Record
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, userID.String(), got.UserID)
	require.Equal(t, "user_created", got.Action)
}
