package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/citasalud/citas-server/internal/store"
	"github.com/citasalud/citas-server/internal/utils"
)

// ReminderHandler handles reminder-flag requests.
type ReminderHandler struct {
	Store store.Store
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(st store.Store) *ReminderHandler {
	return &ReminderHandler{Store: st}
}

// MarkReminderRequest is the request body for marking one reminder as sent.
type MarkReminderRequest struct {
	Tipo string `json:"tipo" binding:"required"`
}

// MarkReminder handles PATCH /api/citas/:id/marcar-recordatorio. Exactly one
// flag is set; the other two are untouched.
func (h *ReminderHandler) MarkReminder(c *gin.Context) {
	var req MarkReminderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	cita, err := h.Store.SetFlag(c.Request.Context(), c.Param("id"), req.Tipo)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	utils.Success(c, "Reminder marked as sent", cita)
}

// ResetFlags handles PATCH /api/citas/:id/reset-flags.
func (h *ReminderHandler) ResetFlags(c *gin.Context) {
	cita, err := h.Store.ResetFlags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	utils.Success(c, "Reminder flags reset", cita)
}

// ResetAllFlags handles PATCH /api/citas/reset-flags/all.
func (h *ReminderHandler) ResetAllFlags(c *gin.Context) {
	citas, err := h.Store.ResetAllFlags(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	utils.Success(c, "Reminder flags reset for all appointments", citas)
}
