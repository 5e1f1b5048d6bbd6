package updates

import (
	"context"
	"testing"

	"github.com/Kentzo-Omakse/hexim/internal/repositories/repotest"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variation(t *testing.T, raw string) value.Value {
	t.Helper()
	v, err := value.Parse([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestRepository_Queue(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db, repotest.Logger())
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, variation(t, `{"id": 12, "base": {"itemId": 5, "isMain": false, "mainVariationId": 10}}`))
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, variation(t, `{"id": 10, "base": {"itemId": 5, "isMain": true}}`))
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, variation(t, `{"id": 11, "base": {"itemId": 5, "isMain": false, "mainVariationId": 10}}`))
	require.NoError(t, err)

	pending, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{10, 11, 12}, []int64{pending[0].VariationID, pending[1].VariationID, pending[2].VariationID})
	assert.Equal(t, int64(5), pending[0].Variation.Get("base").Get("itemId").IntOr(0))

	require.NoError(t, repo.IncrementErrors(ctx, []string{pending[1].ID}))
	require.NoError(t, repo.MarkProcessed(ctx, []string{pending[0].ID}))

	pending, err = repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].ErrorCount)
	assert.Equal(t, 0, pending[1].ErrorCount)
}
