//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/database"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/testutil"
)

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := database.NewRedisClient(ctx, rc.URL())
	require.NoError(t, err)
	defer client.Close()

	b := NewRedisBroker(client)
	ch, cancel, err := b.Subscribe(ctx, "job1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(ctx, domain.JobUpdate{
		JobID: "job1",
		Kind:  domain.JobUpdateCategory,
		Key:   "housingMarket",
		At:    time.Now().UTC(),
	}))

	select {
	case u := <-ch:
		assert.Equal(t, domain.JobUpdateCategory, u.Kind)
		assert.Equal(t, "housingMarket", u.Key)
	case <-time.After(5 * time.Second):
		t.Fatal("update not delivered")
	}
}
