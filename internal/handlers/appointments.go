package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/citasalud/citas-server/internal/notifier"
	"github.com/citasalud/citas-server/internal/store"
	"github.com/citasalud/citas-server/internal/utils"
)

// CitaHandler handles appointment lifecycle requests.
type CitaHandler struct {
	Store    store.Store
	Notifier *notifier.Notifier
}

// NewCitaHandler creates a new CitaHandler.
func NewCitaHandler(st store.Store, n *notifier.Notifier) *CitaHandler {
	return &CitaHandler{Store: st, Notifier: n}
}

// CitaRequest is the request body for creating or fully updating an
// appointment. Every editable field must be supplied.
type CitaRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required"`
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
	Time      string `json:"time" binding:"required,datetime=15:04"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

func (r *CitaRequest) fields() store.CitaFields {
	return store.CitaFields{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Date:      r.Date,
		Time:      r.Time,
		Reason:    r.Reason,
		Notes:     r.Notes,
	}
}

// respondStoreError maps store errors onto the HTTP taxonomy.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.NotFound(c, "Appointment not found")
	case errors.Is(err, store.ErrSlotTaken):
		utils.Conflict(c, "An appointment already exists for that date and time")
	case errors.Is(err, store.ErrInvalidFlag):
		utils.BadRequest(c, "Unknown reminder type")
	default:
		utils.InternalServerError(c, "Database error")
	}
}

// Create handles POST /api/citas.
func (h *CitaHandler) Create(c *gin.Context) {
	var req CitaRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	// Fast path; the unique slot index catches whatever races past it.
	taken, err := h.Store.HasConflict(c.Request.Context(), req.Date, req.Time)
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	if taken {
		utils.Conflict(c, "An appointment already exists for that date and time")
		return
	}

	cita, err := h.Store.Create(c.Request.Context(), req.fields())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	h.Notifier.Dispatch(notifier.EventCreated, cita)
	utils.Created(c, "Appointment created successfully", cita)
}

// List handles GET /api/citas.
func (h *CitaHandler) List(c *gin.Context) {
	citas, err := h.Store.GetAll(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	utils.Success(c, "Appointments fetched successfully", citas)
}

// GetByID handles GET /api/citas/:id.
func (h *CitaHandler) GetByID(c *gin.Context) {
	cita, err := h.Store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", cita)
}

// GetByDate handles GET /api/citas/fecha/:fecha. Cancelled appointments are
// included; the pendientes endpoint is the filtered view.
func (h *CitaHandler) GetByDate(c *gin.Context) {
	fecha := c.Param("fecha")
	if _, err := time.Parse("2006-01-02", fecha); err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	citas, err := h.Store.GetByDate(c.Request.Context(), fecha)
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	utils.Success(c, "Appointments fetched successfully", citas)
}

// GetPending handles GET /api/citas/pendientes: confirmed appointments dated
// today or later.
func (h *CitaHandler) GetPending(c *gin.Context) {
	citas, err := h.Store.GetPending(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	utils.Success(c, "Appointments fetched successfully", citas)
}

// Update handles PUT /api/citas/:id. Moving an active appointment onto an
// occupied slot is rejected the same way creation is.
func (h *CitaHandler) Update(c *gin.Context) {
	var req CitaRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	cita, err := h.Store.Update(c.Request.Context(), c.Param("id"), req.fields())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", cita)
}

// Cancel handles DELETE /api/citas/:id. The record is retained with status
// cancelled, freeing its slot.
func (h *CitaHandler) Cancel(c *gin.Context) {
	cita, err := h.Store.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	h.Notifier.Dispatch(notifier.EventCancelled, cita)
	utils.Success(c, "Appointment cancelled successfully", cita)
}

// DeleteAll handles DELETE /api/citas: irreversible bulk purge.
func (h *CitaHandler) DeleteAll(c *gin.Context) {
	count, err := h.Store.DeleteAll(c.Request.Context())
	if err != nil {
		utils.InternalServerError(c, "Database error")
		return
	}
	utils.Success(c, "All appointments deleted", gin.H{"deleted": count})
}
