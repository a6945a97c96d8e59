package dto

import (
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// StartRequest is the caller-supplied job request. Absent fields fall
// back to the stored configuration.
type StartRequest struct {
	Name               *string      `json:"name"`
	HouseFlatNo        *string      `json:"house_flat_no"`
	Landmark           *string      `json:"landmark"`
	TotalOrders        *int         `json:"total_orders"`
	MaxParallelWindows *int         `json:"max_parallel_windows"`
	RetryOrders        *bool        `json:"retry_orders"`
	OrderAll           *bool        `json:"order_all"`
	Products           []ProductDTO `json:"products"`
	Location           *LocationDTO `json:"location"`
}

// ProductDTO is one product target in a request or response.
type ProductDTO struct {
	URL      string `json:"url"`
	Quantity int    `json:"quantity"`
}

// LocationDTO mirrors the location settings group.
type LocationDTO struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	SelectLocation bool    `json:"select_location"`
	SearchInput    string  `json:"search_input"`
	LocationText   string  `json:"location_text"`
}

// Overlay applies the request fields onto a base config.
func (r *StartRequest) Overlay(cfg domain.JobConfig) domain.JobConfig {
	if r.Name != nil {
		cfg.Identity.Name = *r.Name
	}
	if r.HouseFlatNo != nil {
		cfg.Identity.HouseFlatNo = *r.HouseFlatNo
	}
	if r.Landmark != nil {
		cfg.Identity.Landmark = *r.Landmark
	}
	if r.TotalOrders != nil {
		cfg.TotalUnits = *r.TotalOrders
	}
	if r.MaxParallelWindows != nil {
		cfg.MaxParallelism = *r.MaxParallelWindows
	}
	if r.RetryOrders != nil {
		cfg.RetryOnce = *r.RetryOrders
	}
	if r.OrderAll != nil {
		if *r.OrderAll {
			cfg.FallbackMode = domain.FallbackAll
		} else {
			cfg.FallbackMode = domain.FallbackSequential
		}
	}
	if r.Products != nil {
		products := make([]domain.Product, len(r.Products))
		for i, p := range r.Products {
			products[i] = domain.Product{URL: p.URL, Quantity: p.Quantity}
		}
		cfg.Products = products
	}
	if r.Location != nil {
		cfg.Location = domain.Location{
			Latitude:         r.Location.Latitude,
			Longitude:        r.Location.Longitude,
			SelectionEnabled: r.Location.SelectLocation,
			SearchQuery:      r.Location.SearchInput,
			TargetLabel:      r.Location.LocationText,
		}
	}
	return cfg
}

// StatusResponse reports the lifecycle state plus the last polled
// status and terminal report, if any.
type StatusResponse struct {
	State      string                   `json:"state"`
	RunID      string                   `json:"run_id,omitempty"`
	Status     *domain.JobStatus        `json:"status,omitempty"`
	LastReport *domain.CompletionReport `json:"last_report,omitempty"`
}

// SettingsResponse is the merged configuration view.
type SettingsResponse struct {
	Identity domain.Identity  `json:"identity"`
	Products []ProductDTO     `json:"products"`
	Location LocationDTO      `json:"location"`
	Run      domain.RunParams `json:"run"`
}

// IdentityRequest updates the identity settings group.
type IdentityRequest struct {
	Name        string `json:"name" binding:"required"`
	HouseFlatNo string `json:"house_flat_no" binding:"required"`
	Landmark    string `json:"landmark" binding:"required"`
}

// ProductsRequest updates the products settings group.
type ProductsRequest struct {
	Products []ProductDTO `json:"products" binding:"required"`
}

// RunParamsRequest updates the run settings group.
type RunParamsRequest struct {
	TotalOrders        int  `json:"total_orders" binding:"required,min=1"`
	MaxParallelWindows int  `json:"max_parallel_windows" binding:"required,min=1"`
	RetryOrders        bool `json:"retry_orders"`
	OrderAll           bool `json:"order_all"`
}
