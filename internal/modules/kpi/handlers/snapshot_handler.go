package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/store"
)

// SnapshotHandler covers dataset lifecycle: export, import, save, reset and
// the undo/redo stack.
type SnapshotHandler struct {
	store *store.Store
}

func NewSnapshotHandler(st *store.Store) *SnapshotHandler {
	return &SnapshotHandler{store: st}
}

// Export handles GET /snapshot and returns the full dataset.
func (h *SnapshotHandler) Export(c *fiber.Ctx) error {
	return c.JSON(h.store.Snapshot())
}

// Import handles POST /snapshot and replaces the full dataset.
func (h *SnapshotHandler) Import(c *fiber.Ctx) error {
	data := models.NewDataset()
	if err := c.BodyParser(data); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	err := h.store.WithHistory("import snapshot", func() error {
		h.store.ReplaceAll(data)
		return nil
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Snapshot imported successfully"})
}

// Save handles POST /snapshot/save and forces a write to disk.
func (h *SnapshotHandler) Save(c *fiber.Ctx) error {
	if !h.store.Persisting() {
		return c.Status(400).JSON(fiber.Map{"error": "persistence is disabled"})
	}
	if err := h.store.Save(); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Snapshot saved successfully"})
}

// Reset handles POST /reset and restores the seed dataset.
func (h *SnapshotHandler) Reset(c *fiber.Ctx) error {
	h.store.Reset()
	return c.JSON(fiber.Map{"message": "Catalog reset to seed data"})
}

// Undo handles POST /undo.
func (h *SnapshotHandler) Undo(c *fiber.Ctx) error {
	if !h.store.Undo() {
		return c.Status(400).JSON(fiber.Map{"error": "nothing to undo"})
	}
	return c.JSON(fiber.Map{"message": "Undo applied"})
}

// Redo handles POST /redo.
func (h *SnapshotHandler) Redo(c *fiber.Ctx) error {
	if !h.store.Redo() {
		return c.Status(400).JSON(fiber.Map{"error": "nothing to redo"})
	}
	return c.JSON(fiber.Map{"message": "Redo applied"})
}
