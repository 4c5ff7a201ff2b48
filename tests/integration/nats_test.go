//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/learnly-platform/learnly/internal/config"
	inats "github.com/learnly-platform/learnly/internal/nats"
)

func setupNATSContainer(t *testing.T) *inats.Client {
	t.Helper()
	ctx := context.Background()

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { natsContainer.Terminate(ctx) })

	host, _ := natsContainer.Host(ctx)
	port, _ := natsContainer.MappedPort(ctx, "4222")

	client, err := inats.NewClient(ctx, config.NATSConfig{
		URL: fmt.Sprintf("nats://%s:%s", host, port.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestNATSPublishConsume(t *testing.T) {
	client := setupNATSContainer(t)
	ctx := context.Background()

	publisher := inats.NewPublisher(client.JetStream())
	consumerMgr := inats.NewConsumerManager(client.JetStream())

	t.Run("publish and consume audit event", func(t *testing.T) {
		event := inats.AuditEvent{
			UserID:       "user-42",
			EventType:    inats.EventToolExecuted,
			Severity:     "info",
			ResourceType: "tool",
			ResourceID:   "search_topics",
			Details:      `execution_time_ms=12 error=""`,
			Timestamp:    time.Now().UTC(),
		}

		err := publisher.PublishAuditEvent(ctx, event)
		require.NoError(t, err)

		consumer, err := consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "test-audit-consumer", inats.SubjectAuditEvent)
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received inats.AuditEvent
		for m := range msgs.Messages() {
			err = json.Unmarshal(m.Data(), &received)
			require.NoError(t, err)
			_ = m.Ack()
		}

		assert.Equal(t, "user-42", received.UserID)
		assert.Equal(t, inats.EventToolExecuted, received.EventType)
		assert.Equal(t, "search_topics", received.ResourceID)
	})

	t.Run("publish and consume decision event", func(t *testing.T) {
		event := inats.DecisionEvent{
			UserID:    "user-42",
			Label:     "user_confirmed_generation",
			Data:      map[string]any{"granularity": "topic"},
			Timestamp: time.Now().UTC(),
		}

		err := publisher.PublishDecisionEvent(ctx, event)
		require.NoError(t, err)

		consumer, err := consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "test-decision-consumer", inats.SubjectDecisionEvent)
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received inats.DecisionEvent
		for m := range msgs.Messages() {
			err = json.Unmarshal(m.Data(), &received)
			require.NoError(t, err)
			_ = m.Ack()
		}

		assert.Equal(t, "user_confirmed_generation", received.Label)
		assert.Equal(t, "topic", received.Data["granularity"])
	})

	t.Run("NATS client is healthy", func(t *testing.T) {
		assert.True(t, client.Healthy())
	})
}
