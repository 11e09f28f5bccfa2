// Package store owns appointment persistence: CRUD, ordered listings,
// slot-conflict detection, and the reminder-flag transitions.
package store

import (
	"context"
	"errors"

	"github.com/citasalud/citas-server/internal/models"
)

// Sentinel errors; handlers map these onto HTTP status codes.
var (
	// ErrNotFound indicates no appointment matches the given id.
	ErrNotFound = errors.New("cita not found")
	// ErrSlotTaken indicates an active appointment already occupies the
	// requested (date, time) slot.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrInvalidFlag indicates an unrecognized reminder flag type.
	ErrInvalidFlag = errors.New("unknown reminder flag type")
)

// CitaFields carries the editable fields for create and full update.
type CitaFields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Date      string
	Time      string
	Reason    string
	Notes     string
}

// Store is the persistence contract for appointments.
type Store interface {
	Create(ctx context.Context, fields CitaFields) (*models.Cita, error)
	GetAll(ctx context.Context) ([]models.Cita, error)
	GetByID(ctx context.Context, id string) (*models.Cita, error)
	GetByDate(ctx context.Context, date string) ([]models.Cita, error)
	GetPending(ctx context.Context) ([]models.Cita, error)
	Update(ctx context.Context, id string, fields CitaFields) (*models.Cita, error)
	Cancel(ctx context.Context, id string) (*models.Cita, error)
	DeleteAll(ctx context.Context) (int64, error)

	// HasConflict reports whether an active appointment occupies the exact
	// (date, time) slot. Fast-path only: the unique slot index is the
	// authoritative guard.
	HasConflict(ctx context.Context, date, timeOfDay string) (bool, error)

	SetFlag(ctx context.Context, id, tipo string) (*models.Cita, error)
	ResetFlags(ctx context.Context, id string) (*models.Cita, error)
	ResetAllFlags(ctx context.Context) ([]models.Cita, error)
}

// validFlag reports whether tipo names one of the three reminder flags.
func validFlag(tipo string) bool {
	switch tipo {
	case models.FlagLongLead, models.FlagShortLead, models.FlagPost:
		return true
	}
	return false
}
