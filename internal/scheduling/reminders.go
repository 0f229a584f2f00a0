package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const ReminderTypeNotification = "notification"

// SendDueReminders notifies patients whose active appointment starts within
// the reminder lead. Each appointment is reminded once per lead; reruns are
// no-ops. It returns how many reminders went out.
func (s *Service) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now()
	today := DateOf(now.In(s.cfg.Location))
	days := int(s.cfg.ReminderLead/(24*time.Hour)) + 1

	// One day either side covers doctors in other time zones.
	appts, err := s.repo.ActiveBetween(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, days+1))
	if err != nil {
		return 0, fmt.Errorf("load upcoming appointments: %w", err)
	}

	hoursBefore := int(s.cfg.ReminderLead / time.Hour)
	locations := make(map[uuid.UUID]*time.Location)
	names := make(map[uuid.UUID]string)
	sent := 0

	for i := range appts {
		a := &appts[i]

		loc, ok := locations[a.DoctorID]
		if !ok {
			loc = s.cfg.Location
			if d, err := s.doctor(ctx, a.DoctorID); err == nil {
				loc = d.Location
				names[a.DoctorID] = d.DisplayName()
			}
			locations[a.DoctorID] = loc
		}

		lead := a.StartsAt(loc).Sub(now)
		if lead <= 0 || lead > s.cfg.ReminderLead {
			continue
		}

		created, err := s.repo.RecordReminder(ctx, a.ID, ReminderTypeNotification, hoursBefore)
		if err != nil {
			s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("record reminder")
			continue
		}
		if !created {
			continue
		}

		doctor := names[a.DoctorID]
		if doctor == "" {
			doctor = "your doctor"
		}
		s.notify(ctx, a.PatientID, "Appointment Reminder",
			fmt.Sprintf("Reminder: you have an appointment with %s on %s.", doctor, when(a)))
		s.logEvent(ctx, &a.ID, EventReminderSent, map[string]any{
			"hours_before": hoursBefore,
			"starts_at":    a.StartsAt(loc),
		})
		sent++
	}

	return sent, nil
}
