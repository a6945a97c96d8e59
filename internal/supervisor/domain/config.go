package domain

// FallbackMode controls how the remote worker walks the product list
// for each order unit.
type FallbackMode string

const (
	// FallbackSequential tries products in order and stops at the first
	// success per unit.
	FallbackSequential FallbackMode = "SEQUENTIAL"
	// FallbackAll adds every product to a single transaction per unit
	// before evaluating success.
	FallbackAll FallbackMode = "ALL"
)

// Identity holds the delivery identity fields. All three are mandatory
// for admission.
type Identity struct {
	Name        string `json:"name"`
	HouseFlatNo string `json:"house_flat_no"`
	Landmark    string `json:"landmark"`
}

// Complete reports whether every identity field is non-empty.
func (i Identity) Complete() bool {
	return i.Name != "" && i.HouseFlatNo != "" && i.Landmark != ""
}

// Product is one order target. Entries with an empty URL are ignored
// during validation.
type Product struct {
	URL      string `json:"url"`
	Quantity int    `json:"quantity"`
}

// Location describes the optional delivery location selection. The
// coordinates and search fields are only meaningful when
// SelectionEnabled is true.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	SelectionEnabled bool    `json:"select_location"`
	SearchQuery      string  `json:"search_input"`
	TargetLabel      string  `json:"location_text"`
}

// JobConfig is the full request payload for one automation run. It is
// editable while the session is idle and frozen for the duration of a
// run.
type JobConfig struct {
	Identity       Identity     `json:"identity"`
	TotalUnits     int          `json:"total_orders"`
	MaxParallelism int          `json:"max_parallel_windows"`
	RetryOnce      bool         `json:"retry_orders"`
	Products       []Product    `json:"products"`
	FallbackMode   FallbackMode `json:"fallback_mode"`
	Location       Location     `json:"location"`
}

// RunParams groups the numeric/boolean run settings that are saved
// together as one settings group.
type RunParams struct {
	TotalUnits     int          `json:"total_orders"`
	MaxParallelism int          `json:"max_parallel_windows"`
	RetryOnce      bool         `json:"retry_orders"`
	FallbackMode   FallbackMode `json:"fallback_mode"`
}
