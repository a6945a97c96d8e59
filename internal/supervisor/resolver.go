package supervisor

import (
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// ExecutionPlan is the shaped product list handed to the remote worker.
// Order matters for sequential fallback; OrderAll tags the plan so the
// worker adds every product to a single transaction per unit.
type ExecutionPlan struct {
	Products []domain.Product
	OrderAll bool
}

// ValidateProducts filters out entries with an empty URL, preserving
// the relative order of the rest. It fails with ErrNoValidProducts if
// nothing remains.
func ValidateProducts(products []domain.Product) ([]domain.Product, error) {
	valid := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.URL == "" {
			continue
		}
		if p.Quantity < 1 {
			p.Quantity = 1
		}
		valid = append(valid, p)
	}

	if len(valid) == 0 {
		return nil, domain.ErrNoValidProducts
	}
	return valid, nil
}

// ResolveOrder shapes the validated list according to the fallback
// mode. SEQUENTIAL keeps input order with the primary product first;
// ALL tags the plan so the worker orders everything together.
func ResolveOrder(validated []domain.Product, mode domain.FallbackMode) ExecutionPlan {
	return ExecutionPlan{
		Products: validated,
		OrderAll: mode == domain.FallbackAll,
	}
}
