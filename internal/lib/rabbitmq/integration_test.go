package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

func setupRabbitMQ(ctx context.Context, t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping RabbitMQ integration test in short mode")
	}
	if url := os.Getenv("TEST_RABBITMQ_URL"); url != "" {
		return url
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "guest",
				"RABBITMQ_DEFAULT_PASS": "guest",
			},
			WaitingFor: wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublishAndConsumeReminder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	uri := setupRabbitMQ(ctx, t)

	conn, err := Connect(uri, 5, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := SetupChannel(conn, ReminderQueues())
	require.NoError(t, err)
	defer ch.Close()

	msg := models.ReminderMessage{SubjectID: "SSC7", Channel: "+263771234567", Term: "2026-1", Tone: "gentle", Text: "hello"}
	require.NoError(t, NewReminderPublisher(ch).PublishReminder(ctx, msg))

	received := make(chan models.ReminderMessage, 1)
	err = ConsumerMessage(ctx, ch, BalanceReminderQueue, func(body []byte) error {
		var got models.ReminderMessage
		if err := json.Unmarshal(body, &got); err != nil {
			return err
		}
		received <- got
		return nil
	}, newNoopLogger())
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, msg, got)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for reminder")
	}
}
