package models

// CitaStatus represents the lifecycle status of an appointment.
type CitaStatus string

const (
	StatusConfirmed CitaStatus = "confirmed"
	StatusCancelled CitaStatus = "cancelled"
)

// Reminder flag type codes accepted by the marcar-recordatorio endpoint.
const (
	FlagLongLead  = "long-lead"
	FlagShortLead = "short-lead"
	FlagPost      = "post"
)

// Cita represents a scheduled appointment.
type Cita struct {
	BaseModel
	FirstName string     `gorm:"size:100" json:"firstName"`
	LastName  string     `gorm:"size:100" json:"lastName"`
	Email     string     `gorm:"size:255" json:"email"`
	Phone     string     `gorm:"size:30" json:"phone"`
	Date      string     `gorm:"size:10;index" json:"date"` // YYYY-MM-DD
	Time      string     `gorm:"size:5" json:"time"`        // HH:MM
	Reason    string     `gorm:"size:255" json:"reason"`
	Notes     string     `gorm:"type:text" json:"notes"`
	Status    CitaStatus `gorm:"size:20;default:'confirmed'" json:"status"`

	// SlotKey is date|time while the row is active and NULL once cancelled.
	// The unique index on it is what actually prevents double-booking; the
	// pre-insert conflict query is only a fast path.
	SlotKey *string `gorm:"size:20;uniqueIndex" json:"-"`

	ReminderLongLeadSent  bool `gorm:"default:false" json:"reminderLongLeadSent"`
	ReminderShortLeadSent bool `gorm:"default:false" json:"reminderShortLeadSent"`
	ReminderPostSent      bool `gorm:"default:false" json:"reminderPostSent"`
}

// TableName pins the table name relied on by the external automation flows.
func (Cita) TableName() string {
	return "citas"
}

// SlotKeyFor builds the uniqueness key for an active (date, time) slot.
func SlotKeyFor(date, timeOfDay string) string {
	return date + "|" + timeOfDay
}

// IsActive reports whether the appointment still occupies its slot.
func (c *Cita) IsActive() bool {
	return c.Status != StatusCancelled
}
