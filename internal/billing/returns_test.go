package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func originalItems(t *testing.T) []LineItem {
	t.Helper()
	return []LineItem{
		item(t, "Gala Apples", "LOT-001", 25, "3.50", "0"),
		item(t, "Bartlett Pears", "LOT-002", 8, "6.99", "0"),
	}
}

func TestSetReturnQuantityInsertsAndComputesSubtotal(t *testing.T) {
	original := originalItems(t)

	returns := SetReturnQuantity(original, nil, 0, 3)

	require.Len(t, returns, 1)
	entry := returns[0]
	assert.Equal(t, "Gala Apples", entry.ProductName)
	assert.Equal(t, "LOT-001", entry.LotCode)
	assert.Equal(t, int64(3), entry.Quantity)
	assertAmount(t, "3.50", entry.UnitPrice)
	assertAmount(t, "10.50", entry.Subtotal)

	assert.Equal(t, ReturnPartial, ClassifyReturnType(original, returns))
}

func TestSetReturnQuantityClamps(t *testing.T) {
	original := originalItems(t)

	for _, requested := range []int64{-5, 0, 3, 25, 9000} {
		returns := SetReturnQuantity(original, nil, 0, requested)
		if requested <= 0 {
			assert.Empty(t, returns, "requested %d", requested)
			continue
		}
		require.Len(t, returns, 1)
		qty := returns[0].Quantity
		assert.GreaterOrEqual(t, qty, int64(0))
		assert.LessOrEqual(t, qty, original[0].Quantity)
	}
}

func TestSetReturnQuantityZeroRemovesEntry(t *testing.T) {
	original := originalItems(t)
	returns := SetReturnQuantity(original, nil, 0, 3)
	returns = SetReturnQuantity(original, returns, 1, 2)
	require.Len(t, returns, 2)

	returns = SetReturnQuantity(original, returns, 0, 0)
	require.Len(t, returns, 1)
	assert.Equal(t, "LOT-002", returns[0].LotCode)
}

func TestSetReturnQuantityMatchesByIdentityNotIndex(t *testing.T) {
	original := originalItems(t)
	returns := SetReturnQuantity(original, nil, 0, 3)

	// Reorder the original list; the entry still tracks the same item.
	reordered := []LineItem{original[1], original[0]}
	returns = SetReturnQuantity(reordered, returns, 1, 5)

	require.Len(t, returns, 1)
	assert.Equal(t, "LOT-001", returns[0].LotCode)
	assert.Equal(t, int64(5), returns[0].Quantity)
}

func TestSetReturnQuantityOutOfRangeIndex(t *testing.T) {
	original := originalItems(t)
	returns := SetReturnQuantity(original, nil, 7, 3)
	assert.Empty(t, returns)
}

func TestClassifyReturnType(t *testing.T) {
	original := originalItems(t)

	full := SetReturnQuantity(original, nil, 0, 25)
	full = SetReturnQuantity(original, full, 1, 8)
	assert.Equal(t, ReturnFull, ClassifyReturnType(original, full))

	// Proper subset at full quantity.
	subset := SetReturnQuantity(original, nil, 0, 25)
	assert.Equal(t, ReturnPartial, ClassifyReturnType(original, subset))

	// Every item covered but one quantity reduced.
	reduced := SetReturnQuantity(original, nil, 0, 25)
	reduced = SetReturnQuantity(original, reduced, 1, 7)
	assert.Equal(t, ReturnPartial, ClassifyReturnType(original, reduced))

	assert.Equal(t, ReturnPartial, ClassifyReturnType(original, nil))
}

func TestFinalizeReturn(t *testing.T) {
	original := originalItems(t)
	returns := SetReturnQuantity(original, nil, 0, 3)

	summary, err := FinalizeReturn(original, returns, ReasonDamaged, "crushed in transit")
	require.NoError(t, err)

	assert.Equal(t, ReturnPartial, summary.Type)
	assert.Equal(t, "Damaged goods: crushed in transit", summary.Reason)
	assertAmount(t, "10.50", summary.Total)
	require.Len(t, summary.Items, 1)
}

func TestFinalizeReturnWithoutDetail(t *testing.T) {
	original := originalItems(t)
	returns := SetReturnQuantity(original, nil, 1, 2)

	summary, err := FinalizeReturn(original, returns, ReasonExpired, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Expired product", summary.Reason)
}

func TestFinalizeReturnPreconditions(t *testing.T) {
	original := originalItems(t)

	_, err := FinalizeReturn(original, nil, ReasonDamaged, "")
	assert.ErrorIs(t, err, ErrEmptyReturn)

	returns := SetReturnQuantity(original, nil, 0, 1)
	_, err = FinalizeReturn(original, returns, ReturnReason("bogus"), "")
	assert.ErrorIs(t, err, ErrUnknownReason)
}
