package estimator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/types"
)

func TestEstimateBatch_PreservesOrderAndIsolatesErrors(t *testing.T) {
	inputs := make([]Input, 0, 30)
	for i := 0; i < 30; i++ {
		in := baselineInput()
		in.LandArea = float64(i + 1)
		if i%7 == 3 {
			in.PanelArea = 0
		}
		inputs = append(inputs, in)
	}

	items, err := EstimateBatch(context.Background(), DefaultModel(), inputs)
	require.NoError(t, err)
	require.Len(t, items, len(inputs))

	seen := make(map[string]bool)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.NotEmpty(t, item.ID)
		assert.False(t, seen[item.ID], "duplicate item id")
		seen[item.ID] = true

		if i%7 == 3 {
			require.NotNil(t, item.Error, "item %d", i)
			assert.Nil(t, item.Result)
			assert.Equal(t, string(types.ErrCodeValidationInvalidInput), item.Error.Code)
			assert.ErrorIs(t, item.Error, ErrInvalidInput)
			continue
		}

		require.Nil(t, item.Error, "item %d", i)
		want, err := Estimate(DefaultModel(), inputs[i])
		require.NoError(t, err)
		assert.Equal(t, want, item.Result)
	}
}

func TestEstimateBatch_ZeroRevenueItem(t *testing.T) {
	zero := baselineInput()
	zero.KWhPayment = ptr(0)
	zero.Maintenance = 0

	items, err := EstimateBatch(context.Background(), DefaultModel(), []Input{baselineInput(), zero})
	require.NoError(t, err)

	assert.NotNil(t, items[0].Result)
	require.NotNil(t, items[1].Error)
	assert.True(t, errors.Is(items[1].Error, ErrZeroRevenue))
	assert.Equal(t, string(types.ErrCodeEstimateZeroRevenue), items[1].Error.Code)
}

func TestEstimateBatch_OverflowItemIsolated(t *testing.T) {
	huge := baselineInput()
	huge.LandArea = 1e306
	huge.PanelArea = 1e-10

	items, err := EstimateBatch(context.Background(), DefaultModel(), []Input{baselineInput(), huge, baselineInput()})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.NotNil(t, items[0].Result)
	assert.NotNil(t, items[2].Result)
	require.NotNil(t, items[1].Error)
	assert.Nil(t, items[1].Result)
	assert.Equal(t, string(types.ErrCodeValidationOutOfRange), items[1].Error.Code)
	assert.ErrorIs(t, items[1].Error, ErrInvalidInput)
}

func TestEstimateBatch_Empty(t *testing.T) {
	items, err := EstimateBatch(context.Background(), DefaultModel(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEstimateBatch_TooLarge(t *testing.T) {
	inputs := make([]Input, MaxBatchSize+1)

	_, err := EstimateBatch(context.Background(), DefaultModel(), inputs)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationBatchSize, appErr.Code)
}

func TestEstimateBatch_InvalidModel(t *testing.T) {
	_, err := EstimateBatch(context.Background(), Model{}, []Input{baselineInput()})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestEstimateBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EstimateBatch(ctx, DefaultModel(), []Input{baselineInput(), baselineInput()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
