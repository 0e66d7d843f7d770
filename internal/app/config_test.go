package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, ":50051", cfg.GRPCAddr)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	require.True(t, cfg.PostgresAutoMigrate)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, kafka.TopicCartEvents, cfg.KafkaTopic)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Empty(t, cfg.AllowedOrigins)
}

func TestConfig_EmptyValues(t *testing.T) {
	cfg := Config{}

	require.Empty(t, cfg.HTTPAddr)
	require.Empty(t, cfg.StorageDriver)
	require.False(t, cfg.PostgresAutoMigrate)
	require.Zero(t, cfg.ShutdownTimeout)
}

func TestSplitList(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and blanks", raw: " a:1, b:2,,c:3 ", want: []string{"a:1", "b:2", "c:3"}},
		{name: "only commas", raw: ",,", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, splitList(tc.raw))
		})
	}
}
