package intake

import (
	"log/slog"

	"formgate/internal/intake/handler"
	"formgate/internal/intake/service"
)

// Service exposes the link intake state machine.
type Service = service.Service

// Handler wires HTTP endpoints to the intake service.
type Handler = handler.Handler

// NewService constructs the intake service with its persistence surface.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs an HTTP handler for the public start-form routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
