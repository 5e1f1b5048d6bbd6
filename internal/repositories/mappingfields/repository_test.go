package mappingfields

import (
	"context"
	"testing"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SetListDelete(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db, repotest.Logger())
	ctx := context.Background()

	_, err := repo.Set(ctx, models.MappingTypeProduct, "isCloseout", "variation.stockLimitation")
	require.NoError(t, err)
	updated, err := repo.Set(ctx, models.MappingTypeProduct, "isCloseout", "variation.base.stockLimitation")
	require.NoError(t, err)
	assert.Equal(t, "variation.base.stockLimitation", updated.PlentyField)

	overrides, err := repo.ListByType(ctx, models.MappingTypeProduct)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "isCloseout", overrides[0].SwField)

	require.NoError(t, repo.Delete(ctx, models.MappingTypeProduct, "isCloseout"))
	overrides, err = repo.ListByType(ctx, models.MappingTypeProduct)
	require.NoError(t, err)
	assert.Empty(t, overrides)
}
