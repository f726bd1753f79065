package sweeper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinDeliveryBudgetTrueBelowMax(t *testing.T) {
	assert.True(t, withinDeliveryBudget(1, 3))
	assert.True(t, withinDeliveryBudget(2, 3))
}

func TestWithinDeliveryBudgetFalseAtOrAboveMax(t *testing.T) {
	assert.False(t, withinDeliveryBudget(3, 3))
	assert.False(t, withinDeliveryBudget(4, 3))
}
