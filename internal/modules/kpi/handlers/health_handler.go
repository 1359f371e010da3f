package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

type HealthHandler struct {
	store *store.Store
}

func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	past, future := h.store.HistoryDepth()
	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     "kpi-api",
		"persistence": h.store.Persisting(),
		"history": fiber.Map{
			"past":   past,
			"future": future,
		},
	})
}
