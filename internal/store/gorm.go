package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/citasalud/citas-server/internal/models"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a GormStore on the given connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// isDuplicateKey detects a violation of the unique slot index.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func (s *GormStore) Create(ctx context.Context, fields CitaFields) (*models.Cita, error) {
	slotKey := models.SlotKeyFor(fields.Date, fields.Time)
	cita := models.Cita{
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     fields.Email,
		Phone:     fields.Phone,
		Date:      fields.Date,
		Time:      fields.Time,
		Reason:    fields.Reason,
		Notes:     fields.Notes,
		Status:    models.StatusConfirmed,
		SlotKey:   &slotKey,
	}

	if err := s.db.WithContext(ctx).Create(&cita).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return &cita, nil
}

func (s *GormStore) GetAll(ctx context.Context) ([]models.Cita, error) {
	var citas []models.Cita
	err := s.db.WithContext(ctx).
		Order("date asc, time asc").
		Find(&citas).Error
	return citas, err
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*models.Cita, error) {
	var cita models.Cita
	err := s.db.WithContext(ctx).First(&cita, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cita, nil
}

// GetByDate returns every appointment on the given date, cancelled rows
// included, ordered by time.
func (s *GormStore) GetByDate(ctx context.Context, date string) ([]models.Cita, error) {
	var citas []models.Cita
	err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("time asc").
		Find(&citas).Error
	return citas, err
}

// GetPending returns confirmed appointments dated today or later.
func (s *GormStore) GetPending(ctx context.Context) ([]models.Cita, error) {
	today := s.now().Format("2006-01-02")
	var citas []models.Cita
	err := s.db.WithContext(ctx).
		Where("status = ? AND date >= ?", models.StatusConfirmed, today).
		Order("date asc, time asc").
		Find(&citas).Error
	return citas, err
}

// Update replaces every editable field. Moving the slot of an active
// appointment re-derives the slot key, so the unique index re-validates
// the booking the same way creation does.
func (s *GormStore) Update(ctx context.Context, id string, fields CitaFields) (*models.Cita, error) {
	cita, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cita.FirstName = fields.FirstName
	cita.LastName = fields.LastName
	cita.Email = fields.Email
	cita.Phone = fields.Phone
	cita.Date = fields.Date
	cita.Time = fields.Time
	cita.Reason = fields.Reason
	cita.Notes = fields.Notes
	if cita.IsActive() {
		slotKey := models.SlotKeyFor(fields.Date, fields.Time)
		cita.SlotKey = &slotKey
	}

	if err := s.db.WithContext(ctx).Save(cita).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return cita, nil
}

// Cancel marks the appointment cancelled and frees its slot. Cancelled is
// terminal; cancelling twice is a no-op.
func (s *GormStore) Cancel(ctx context.Context, id string) (*models.Cita, error) {
	cita, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cita.IsActive() {
		return cita, nil
	}

	cita.Status = models.StatusCancelled
	cita.SlotKey = nil
	if err := s.db.WithContext(ctx).Save(cita).Error; err != nil {
		return nil, err
	}
	return cita, nil
}

func (s *GormStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.Cita{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) HasConflict(ctx context.Context, date, timeOfDay string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Cita{}).
		Where("date = ? AND time = ? AND status <> ?", date, timeOfDay, models.StatusCancelled).
		Count(&count).Error
	return count > 0, err
}

// flagColumn maps a tipo code to its database column.
func flagColumn(tipo string) string {
	switch tipo {
	case models.FlagLongLead:
		return "reminder_long_lead_sent"
	case models.FlagShortLead:
		return "reminder_short_lead_sent"
	case models.FlagPost:
		return "reminder_post_sent"
	}
	return ""
}

// SetFlag marks a single reminder as dispatched, leaving the other two
// untouched.
func (s *GormStore) SetFlag(ctx context.Context, id, tipo string) (*models.Cita, error) {
	if !validFlag(tipo) {
		return nil, ErrInvalidFlag
	}

	cita, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(cita).Update(flagColumn(tipo), true).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *GormStore) ResetFlags(ctx context.Context, id string) (*models.Cita, error) {
	cita, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(cita).Updates(map[string]interface{}{
		"reminder_long_lead_sent":  false,
		"reminder_short_lead_sent": false,
		"reminder_post_sent":       false,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *GormStore) ResetAllFlags(ctx context.Context) ([]models.Cita, error) {
	err := s.db.WithContext(ctx).Model(&models.Cita{}).
		Where("1 = 1").
		Updates(map[string]interface{}{
			"reminder_long_lead_sent":  false,
			"reminder_short_lead_sent": false,
			"reminder_post_sent":       false,
		}).Error
	if err != nil {
		return nil, err
	}
	return s.GetAll(ctx)
}
