package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: cause, want: KindInternal},
		{name: "app error", err: New(KindForbidden, "x"), want: KindForbidden},
		{name: "wrapped app error", err: fmt.Errorf("outer: %w", New(KindNotFound, "x")), want: KindNotFound},
		{name: "wrap keeps kind", err: Wrap(KindConflict, cause, "dup"), want: KindConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("deadlock")
	err := Internal(cause, "建立訂單失敗")

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindInternal))
	assert.Contains(t, err.Error(), "deadlock")
}

func TestInsufficientStockCarriesEveryShortfall(t *testing.T) {
	err := fmt.Errorf("create order: %w", InsufficientStock([]Shortfall{
		{ProductID: 1, ProductName: "P", Requested: 6, Available: 5},
		{ProductID: 2, ProductName: "Q", Requested: 2, Available: 0},
	}))

	assert.True(t, Is(err, KindInsufficientStock))
	shortfalls := ShortfallsOf(err)
	assert.Len(t, shortfalls, 2)
	assert.Equal(t, uint(2), shortfalls[1].ProductID)
	assert.Nil(t, ShortfallsOf(errors.New("other")))
}
