package handlers

import (
	"scamlens/internal/domain/services"
	"scamlens/internal/streaming"
	"scamlens/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Scans     *ScansHandler
	Users     *UsersHandler
	Streaming *StreamingHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Version  string
	Scans    *services.ScanService
	Accounts *services.AccountService
	Checks   map[string]Pinger
	Hub      *streaming.WebSocketHub
	EventBus *streaming.EventBus
	Recent   *streaming.Recent
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Checks, deps.Logger),
		Scans:     NewScansHandler(deps.Scans, deps.Logger),
		Users:     NewUsersHandler(deps.Accounts, deps.Logger),
		Streaming: NewStreamingHandler(deps.Hub, deps.EventBus, deps.Recent, deps.Logger),
	}
}
