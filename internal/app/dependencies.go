package app

import (
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/event_bus"
	"github.com/zakgeld/moni/internal/utils"
	"github.com/zakgeld/moni/pkg/allowance"
	"github.com/zakgeld/moni/pkg/session"
	"github.com/zakgeld/moni/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	Sessions       *session.Manager
	SessionHandler *session.Handler

	AllowanceService *allowance.ServiceImpl
	AllowanceHandler *allowance.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(stores *Stores, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(stores.Users)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.Sessions = session.NewManager(cfg.Session.TTL, deps.Clock)
	deps.SessionHandler = session.NewHandler(deps.Sessions, deps.UserService)

	settings, err := allowance.SettingsFromConfig(cfg.Allowance)
	if err != nil {
		return nil, err
	}
	deps.AllowanceService = allowance.NewService(stores.Records, deps.Sessions, deps.EventBus, deps.Clock, settings)
	deps.AllowanceHandler = allowance.NewHandler(deps.AllowanceService)

	if stores.Sheets != nil && cfg.Store.Backend != config.BackendSheets {
		stores.Sheets.Mirror(deps.EventBus)
	}
	subscribeAuditLog(deps.EventBus)

	return deps, nil
}
