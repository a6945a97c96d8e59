package supervisor

import (
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// ClampWarning records that the configured parallelism exceeded the
// total order count and was reduced before the run.
type ClampWarning struct {
	Configured int
	Effective  int
}

// CheckAdmission validates a job configuration against the current
// balance and per-unit price. Checks run in a fixed order and the
// first failure wins. On success it returns the config with
// parallelism clamped to the total order count; the clamp also yields
// a warning, returned at most once per call.
//
// Price and balance must both be positive before the capacity check
// runs, even when either value could be skipped. This is a pure
// function: no I/O, no session state.
func CheckAdmission(cfg domain.JobConfig, balance, price float64) (domain.JobConfig, *ClampWarning, error) {
	if !cfg.Identity.Complete() {
		return cfg, nil, domain.ErrIncompleteIdentity
	}

	if cfg.TotalUnits < 1 || cfg.MaxParallelism < 1 {
		return cfg, nil, domain.ErrInvalidBounds
	}

	var warn *ClampWarning
	if cfg.MaxParallelism > cfg.TotalUnits {
		warn = &ClampWarning{Configured: cfg.MaxParallelism, Effective: cfg.TotalUnits}
		cfg.MaxParallelism = cfg.TotalUnits
	}

	valid, err := ValidateProducts(cfg.Products)
	if err != nil {
		return cfg, warn, err
	}
	cfg.Products = valid

	if price <= 0 {
		return cfg, warn, domain.ErrPriceNotSet
	}
	if balance <= 0 {
		return cfg, warn, domain.ErrInsufficientBalance
	}

	capacity := int(balance / price)
	if cfg.TotalUnits > capacity {
		return cfg, warn, &domain.CapacityError{Requested: cfg.TotalUnits, Capacity: capacity}
	}

	return cfg, warn, nil
}
