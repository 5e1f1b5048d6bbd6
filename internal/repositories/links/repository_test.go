package links

import (
	"context"
	"testing"

	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/internal/repositories/repotest"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveAndLookup(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db, repotest.Logger())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, []models.Link{
		{Category: models.LinkProduct, PlentyID: "10", SwID: "sw-10"},
		{Category: models.LinkProduct, PlentyID: "11", SwID: "sw-11"},
		{Category: models.LinkTax, PlentyID: "1", SwID: "tax-1", Extra: database.NewJSONB(map[string]any{"taxRate": 19.0})},
	}))

	t.Run("should return only linked ids of the category", func(t *testing.T) {
		found, err := repo.Lookup(ctx, models.LinkProduct, []string{"10", "12", "1"})
		require.NoError(t, err)
		assert.Len(t, found, 1)
		assert.Equal(t, "sw-10", found["10"].SwID)
	})

	t.Run("should keep the tax rate", func(t *testing.T) {
		found, err := repo.Lookup(ctx, models.LinkTax, []string{"1"})
		require.NoError(t, err)
		assert.Equal(t, models.TaxMapping{SwID: "tax-1", Rate: 19}, models.TaxFromLink(found["1"]))
	})

	t.Run("should repoint an existing link", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, []models.Link{{Category: models.LinkProduct, PlentyID: "11", SwID: "sw-11b"}}))
		found, err := repo.Lookup(ctx, models.LinkProduct, []string{"11"})
		require.NoError(t, err)
		assert.Equal(t, "sw-11b", found["11"].SwID)
	})
}
