package validator

import (
	"testing"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ProductID uuid.UUID `validate:"uuid_required"`
	Type      string    `validate:"required,entry_type"`
	Quantity  int       `validate:"gt=0"`
}

func TestCheck(t *testing.T) {
	ok := sample{ProductID: uuid.New(), Type: string(model.EntryLoss), Quantity: 1}
	require.NoError(t, Check(ok))

	bad := ok
	bad.Type = "vol"
	err := Check(bad)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "entry_type")

	bad = ok
	bad.ProductID = uuid.Nil
	assert.ErrorIs(t, Check(bad), model.ErrValidation)

	bad = ok
	bad.Quantity = 0
	errs := ValidateStruct(bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "gt", errs[0].Tag)
}
