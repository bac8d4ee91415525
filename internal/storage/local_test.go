package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.CreateBucket(ctx, "policies"))
	require.NoError(t, p.PutObject(ctx, "policies", "visitor_policy.txt", strings.NewReader("Visiting hours are 9am to 5pm.")))
	require.NoError(t, p.PutObject(ctx, "policies", "discharge_policy.txt", strings.NewReader("Discharge requires a signed summary.")))

	data, err := p.GetObject(ctx, "policies", "visitor_policy.txt")
	require.NoError(t, err)
	assert.Equal(t, "Visiting hours are 9am to 5pm.", string(data))

	objects, err := p.ListObjects(ctx, "policies", "")
	require.NoError(t, err)
	require.Len(t, objects, 2)

	objects, err = p.ListObjects(ctx, "policies", "visitor")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "visitor_policy.txt", objects[0].Name)
}

func TestLocalProviderMissingObject(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	_, err := p.GetObject(context.Background(), "policies", "nope.txt")
	assert.Error(t, err)
}
