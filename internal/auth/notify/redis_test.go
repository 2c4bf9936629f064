package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis container and returns its URL.
func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisNotifier_EnqueuesJobs(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, setupRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	n := NewRedisNotifier(newTestRenderer(t), client, "test:notify", "noreply@example.com")

	require.NoError(t, n.SendVerification(ctx, "a@x.com", "tok1"))
	require.NoError(t, n.SendPasswordReset(ctx, "a@x.com", "tok2"))

	length, err := client.LLen(ctx, "test:notify").Result()
	require.NoError(t, err)
	require.EqualValues(t, 2, length)

	// LPUSH + RPOP gives FIFO order.
	raw, err := client.RPop(ctx, "test:notify").Result()
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	require.Equal(t, KindVerification, job.Kind)
	require.Equal(t, "a@x.com", job.To)
	require.Equal(t, "noreply@example.com", job.From)
	require.Contains(t, job.Text, "token=tok1")
	require.False(t, job.QueuedAt.IsZero())
}

func TestNewRedisClient_RejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	require.Error(t, err)
}
