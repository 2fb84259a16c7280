package estimator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solarfarm/internal/types"
)

const (
	// MaxBatchSize caps the scenarios accepted by EstimateBatch.
	MaxBatchSize = 100

	// BatchConcurrencyLimit is the number of scenarios evaluated at once.
	BatchConcurrencyLimit = 8
)

// ItemError is the per-scenario failure reported inside a batch.
type ItemError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	err error
}

// Unwrap exposes the original error so errors.Is(item.Error, ErrZeroRevenue)
// keeps working on batch results.
func (e *ItemError) Unwrap() error { return e.err }

func (e *ItemError) Error() string { return e.Code + ": " + e.Message }

// BatchItem is the outcome of one scenario. Exactly one of Result and Error
// is set.
type BatchItem struct {
	Index  int        `json:"index"`
	ID     string     `json:"id"`
	Result *Result    `json:"result,omitempty"`
	Error  *ItemError `json:"error,omitempty"`
}

// EstimateBatch evaluates every scenario against the same model. Items are
// returned in input order; a failing scenario never affects its neighbours.
// The only errors returned for the batch as a whole are an oversized batch
// and a cancelled context.
func EstimateBatch(ctx context.Context, model Model, inputs []Input) ([]BatchItem, error) {
	if len(inputs) > MaxBatchSize {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationBatchSize,
			fmt.Sprintf("batch holds %d scenarios; the limit is %d", len(inputs), MaxBatchSize),
			nil,
			map[string]any{"limit": MaxBatchSize, "count": len(inputs)},
		)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(inputs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(BatchConcurrencyLimit)

	for i := range inputs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			item := BatchItem{Index: i, ID: uuid.NewString()}
			res, err := Estimate(model, inputs[i])
			if err != nil {
				item.Error = NewItemError(err)
			} else {
				item.Result = res
			}
			// Each goroutine owns exactly one slot.
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("batch estimate interrupted: %v", err),
			err,
		)
	}

	return items, nil
}

// NewItemError converts err into the per-item form. AppErrors keep their
// code, message and details; anything else reports internal_unexpected_error.
func NewItemError(err error) *ItemError {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return &ItemError{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
			err:     err,
		}
	}
	return &ItemError{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: err.Error(),
		err:     err,
	}
}
