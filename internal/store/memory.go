package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citasalud/citas-server/internal/models"
)

// MemoryStore is a thread-safe, in-memory Store. It enforces the same slot
// uniqueness and not-found semantics as the MySQL store and backs the test
// suites and local demos.
type MemoryStore struct {
	mu    sync.RWMutex
	citas map[string]*models.Cita
	slots map[string]string // slot key -> cita id, active rows only
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		citas: make(map[string]*models.Cita),
		slots: make(map[string]string),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, fields CitaFields) (*models.Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slotKey := models.SlotKeyFor(fields.Date, fields.Time)
	if _, taken := s.slots[slotKey]; taken {
		return nil, ErrSlotTaken
	}

	now := s.now()
	cita := &models.Cita{
		BaseModel: models.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
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

	s.citas[cita.ID] = cita
	s.slots[slotKey] = cita.ID
	return copyCita(cita), nil
}

func (s *MemoryStore) GetAll(_ context.Context) ([]models.Cita, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.Cita) bool { return true }), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Cita, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cita, ok := s.citas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCita(cita), nil
}

func (s *MemoryStore) GetByDate(_ context.Context, date string) ([]models.Cita, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *models.Cita) bool { return c.Date == date }), nil
}

func (s *MemoryStore) GetPending(_ context.Context) ([]models.Cita, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	today := s.now().Format("2006-01-02")
	return s.collect(func(c *models.Cita) bool {
		return c.Status == models.StatusConfirmed && c.Date >= today
	}), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields CitaFields) (*models.Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cita, ok := s.citas[id]
	if !ok {
		return nil, ErrNotFound
	}

	if cita.IsActive() {
		newKey := models.SlotKeyFor(fields.Date, fields.Time)
		if owner, taken := s.slots[newKey]; taken && owner != id {
			return nil, ErrSlotTaken
		}
		if cita.SlotKey != nil {
			delete(s.slots, *cita.SlotKey)
		}
		s.slots[newKey] = id
		cita.SlotKey = &newKey
	}

	cita.FirstName = fields.FirstName
	cita.LastName = fields.LastName
	cita.Email = fields.Email
	cita.Phone = fields.Phone
	cita.Date = fields.Date
	cita.Time = fields.Time
	cita.Reason = fields.Reason
	cita.Notes = fields.Notes
	cita.UpdatedAt = s.now()
	return copyCita(cita), nil
}

func (s *MemoryStore) Cancel(_ context.Context, id string) (*models.Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cita, ok := s.citas[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !cita.IsActive() {
		return copyCita(cita), nil
	}

	if cita.SlotKey != nil {
		delete(s.slots, *cita.SlotKey)
	}
	cita.SlotKey = nil
	cita.Status = models.StatusCancelled
	cita.UpdatedAt = s.now()
	return copyCita(cita), nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.citas))
	s.citas = make(map[string]*models.Cita)
	s.slots = make(map[string]string)
	return n, nil
}

func (s *MemoryStore) HasConflict(_ context.Context, date, timeOfDay string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.slots[models.SlotKeyFor(date, timeOfDay)]
	return taken, nil
}

func (s *MemoryStore) SetFlag(_ context.Context, id, tipo string) (*models.Cita, error) {
	if !validFlag(tipo) {
		return nil, ErrInvalidFlag
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cita, ok := s.citas[id]
	if !ok {
		return nil, ErrNotFound
	}

	switch tipo {
	case models.FlagLongLead:
		cita.ReminderLongLeadSent = true
	case models.FlagShortLead:
		cita.ReminderShortLeadSent = true
	case models.FlagPost:
		cita.ReminderPostSent = true
	}
	cita.UpdatedAt = s.now()
	return copyCita(cita), nil
}

func (s *MemoryStore) ResetFlags(_ context.Context, id string) (*models.Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cita, ok := s.citas[id]
	if !ok {
		return nil, ErrNotFound
	}
	resetFlags(cita, s.now())
	return copyCita(cita), nil
}

func (s *MemoryStore) ResetAllFlags(_ context.Context) ([]models.Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, cita := range s.citas {
		resetFlags(cita, now)
	}
	return s.collect(func(*models.Cita) bool { return true }), nil
}

func resetFlags(cita *models.Cita, now time.Time) {
	cita.ReminderLongLeadSent = false
	cita.ReminderShortLeadSent = false
	cita.ReminderPostSent = false
	cita.UpdatedAt = now
}

// collect returns matching rows ordered by date then time. Callers hold the
// lock.
func (s *MemoryStore) collect(match func(*models.Cita) bool) []models.Cita {
	out := make([]models.Cita, 0, len(s.citas))
	for _, cita := range s.citas {
		if match(cita) {
			out = append(out, *copyCita(cita))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func copyCita(c *models.Cita) *models.Cita {
	dup := *c
	if c.SlotKey != nil {
		key := *c.SlotKey
		dup.SlotKey = &key
	}
	return &dup
}
