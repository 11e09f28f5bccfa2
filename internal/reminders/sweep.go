// Package reminders runs the periodic sweep that dispatches due reminder
// notifications and marks the corresponding flags.
package reminders

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/citasalud/citas-server/internal/models"
	"github.com/citasalud/citas-server/internal/notifier"
	"github.com/citasalud/citas-server/internal/store"
)

// Reminder windows. Long-lead fires within 24h of the appointment,
// short-lead within 2h, post once the appointment is an hour in the past.
const (
	longLeadWindow  = 24 * time.Hour
	shortLeadWindow = 2 * time.Hour
	postDelay       = time.Hour
)

// Sweeper scans confirmed appointments and dispatches whichever reminders
// have come due. Flags keep the sweep idempotent across runs; each flag is
// independent, so reminders may fire in any order (an appointment created
// less than 24h out gets its short-lead before its long-lead window matters).
type Sweeper struct {
	store    store.Store
	notifier *notifier.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Sweeper.
func New(st store.Store, n *notifier.Notifier, log zerolog.Logger) *Sweeper {
	return &Sweeper{store: st, notifier: n, log: log, now: time.Now}
}

// Start schedules the sweep on the given cron expression and returns the
// running cron, which the caller stops on shutdown.
func (s *Sweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("reminder sweep failed")
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Sweep runs a single pass. Per-appointment failures are logged and skipped;
// only listing failures abort the pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	citas, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	for i := range citas {
		cita := &citas[i]
		if cita.Status != models.StatusConfirmed {
			continue
		}

		at, err := time.ParseInLocation("2006-01-02 15:04", cita.Date+" "+cita.Time, time.Local)
		if err != nil {
			s.log.Warn().Str("id", cita.ID).Str("date", cita.Date).Str("time", cita.Time).
				Msg("skipping cita with unparseable slot")
			continue
		}

		until := at.Sub(now)
		if !cita.ReminderLongLeadSent && until > 0 && until <= longLeadWindow {
			s.fire(ctx, cita, notifier.EventReminderLongLead, models.FlagLongLead)
		}
		if !cita.ReminderShortLeadSent && until > 0 && until <= shortLeadWindow {
			s.fire(ctx, cita, notifier.EventReminderShortLead, models.FlagShortLead)
		}
		if !cita.ReminderPostSent && now.Sub(at) >= postDelay {
			s.fire(ctx, cita, notifier.EventReminderPost, models.FlagPost)
		}
	}
	return nil
}

// fire dispatches one reminder and marks its flag. The flag is set even when
// delivery fails: reminders are best-effort and never retried.
func (s *Sweeper) fire(ctx context.Context, cita *models.Cita, evento, tipo string) {
	if err := s.notifier.Send(evento, cita); err != nil {
		s.log.Warn().Err(err).Str("id", cita.ID).Str("evento", evento).Msg("reminder delivery failed")
	}
	if _, err := s.store.SetFlag(ctx, cita.ID, tipo); err != nil {
		s.log.Error().Err(err).Str("id", cita.ID).Str("tipo", tipo).Msg("failed to mark reminder flag")
	}
}
