//go:build integration

package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_CompleteJSON_RealAPI(t *testing.T) {
	client, err := NewClientFromEnv()
	if err != nil {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}
	var out struct {
		City string `json:"city"`
	}

	err = client.CompleteJSON(context.Background(),
		"Respond only with valid JSON.",
		`Return {"city": "<capital of Portugal>"}`,
		&out)

	require.NoError(t, err)
	assert.Equal(t, "Lisbon", out.City)
}
