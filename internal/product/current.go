package product

import (
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
)

const (
	currentKey = "product.current"
	coverKey   = "product.cover"
)

// Current is the record being mapped. The batch driver stores it in the
// record scope before the engine runs.
type Current struct {
	Record models.SourceRecord
	SwID   string
	// Existing is nil for products that are created by this run.
	Existing *models.ExistingProduct
}

// Owner tags the deferred changes contributed by the record.
func (c Current) Owner() string {
	return c.Record.ForeignID()
}

func SetCurrent(sc *scratch.Context, c Current) {
	sc.SetRecord(currentKey, c)
}

func CurrentFrom(sc *scratch.Context) Current {
	c, _ := scratch.Record[Current](sc, currentKey)
	return c
}
