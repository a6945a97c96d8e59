package handler

import (
	"log/slog"

	"github.com/quickcart/order-supervisor/internal/configstore"
	"github.com/quickcart/order-supervisor/internal/remote"
	"github.com/quickcart/order-supervisor/internal/storage"
	"github.com/quickcart/order-supervisor/internal/supervisor"
)

// Dependencies holds everything the handlers need
type Dependencies struct {
	Logger     *slog.Logger
	Supervisor *supervisor.Supervisor
	Config     *configstore.Store
	Remote     *remote.Client
	Storage    *storage.Storage
}

// AutomationHandler serves the start/stop/status/reset surface
type AutomationHandler struct {
	logger     *slog.Logger
	supervisor *supervisor.Supervisor
	config     *configstore.Store
}

// NewAutomationHandler creates an AutomationHandler
func NewAutomationHandler(deps *Dependencies) *AutomationHandler {
	return &AutomationHandler{
		logger:     deps.Logger,
		supervisor: deps.Supervisor,
		config:     deps.Config,
	}
}

// SettingsHandler serves the per-group settings surface
type SettingsHandler struct {
	logger *slog.Logger
	config *configstore.Store
}

// NewSettingsHandler creates a SettingsHandler
func NewSettingsHandler(deps *Dependencies) *SettingsHandler {
	return &SettingsHandler{
		logger: deps.Logger,
		config: deps.Config,
	}
}

// ReportHandler serves balance, price, remote reports and run history
type ReportHandler struct {
	logger  *slog.Logger
	remote  *remote.Client
	storage *storage.Storage
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(deps *Dependencies) *ReportHandler {
	return &ReportHandler{
		logger:  deps.Logger,
		remote:  deps.Remote,
		storage: deps.Storage,
	}
}
