package storage

import (
	"context"
	"errors"

	"cennzxScope/internal/model"
)

// Storage defines a sink for scenario results.
type Storage interface {
	PutResultBatch(ctx context.Context, results []model.ScenarioResult) error
}

// Multi writes every batch to each sink in order.
type Multi []Storage

func (m Multi) PutResultBatch(ctx context.Context, results []model.ScenarioResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutResultBatch(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
