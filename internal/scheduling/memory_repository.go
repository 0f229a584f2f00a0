package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository. It enforces the same unique
// keys as the Postgres schema, including the active-slot index, so the
// service behaves the same against either store.
type MemoryRepository struct {
	mu           sync.RWMutex
	windows      map[uuid.UUID]AvailabilityWindow
	appointments map[uuid.UUID]Appointment
	reminders    map[string]bool
	events       []EventLog
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		windows:      make(map[uuid.UUID]AvailabilityWindow),
		appointments: make(map[uuid.UUID]Appointment),
		reminders:    make(map[string]bool),
		now:          time.Now,
	}
}

// Events returns a copy of the event log.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

func sortWindows(ws []AvailabilityWindow) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].DayOfWeek != ws[j].DayOfWeek {
			return ws[i].DayOfWeek < ws[j].DayOfWeek
		}
		return ws[i].StartTime < ws[j].StartTime
	})
}

// windowClash reports a window other than skip with the same doctor, day and start.
func (m *MemoryRepository) windowClash(w AvailabilityWindow, skip uuid.UUID) (AvailabilityWindow, bool) {
	for id, other := range m.windows {
		if id != skip && other.DoctorID == w.DoctorID && other.DayOfWeek == w.DayOfWeek && other.StartTime == w.StartTime {
			return other, true
		}
	}
	return AvailabilityWindow{}, false
}

// slotClash reports an active appointment other than skip holding the slot.
func (m *MemoryRepository) slotClash(doctorID uuid.UUID, date time.Time, t TimeOfDay, skip uuid.UUID) bool {
	for id, a := range m.appointments {
		if id != skip && a.Status.Active() && a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == t {
			return true
		}
	}
	return false
}

// Availability store

func (m *MemoryRepository) ListWindows(_ context.Context, doctorID uuid.UUID) ([]AvailabilityWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []AvailabilityWindow
	for _, w := range m.windows {
		if w.DoctorID == doctorID {
			result = append(result, w)
		}
	}
	sortWindows(result)
	return result, nil
}

func (m *MemoryRepository) ActiveWindows(_ context.Context, doctorID uuid.UUID, day Weekday) ([]AvailabilityWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []AvailabilityWindow
	for _, w := range m.windows {
		if w.DoctorID == doctorID && w.DayOfWeek == day && w.IsActive {
			result = append(result, w)
		}
	}
	sortWindows(result)
	return result, nil
}

func (m *MemoryRepository) CountWindows(_ context.Context, doctorID uuid.UUID, day Weekday) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, w := range m.windows {
		if w.DoctorID == doctorID && w.DayOfWeek == day {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) GetWindow(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return &w, nil
}

func (m *MemoryRepository) CreateWindow(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, clash := m.windowClash(w, uuid.Nil); clash {
		return nil, ErrDuplicateWindow
	}
	w.ID = uuid.New()
	w.CreatedAt = m.now()
	w.UpdatedAt = w.CreatedAt
	m.windows[w.ID] = w
	return &w, nil
}

func (m *MemoryRepository) CreateWindowIfAbsent(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, clash := m.windowClash(w, uuid.Nil); clash {
		return &existing, false, nil
	}
	w.ID = uuid.New()
	w.CreatedAt = m.now()
	w.UpdatedAt = w.CreatedAt
	m.windows[w.ID] = w
	return &w, true, nil
}

func (m *MemoryRepository) UpdateWindow(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.windows[w.ID]
	if !ok {
		return nil, ErrWindowNotFound
	}
	w.DoctorID = current.DoctorID
	if _, clash := m.windowClash(w, w.ID); clash {
		return nil, ErrDuplicateWindow
	}
	w.CreatedAt = current.CreatedAt
	w.UpdatedAt = m.now()
	m.windows[w.ID] = w
	return &w, nil
}

func (m *MemoryRepository) DeleteWindow(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(m.windows, id)
	return nil
}

// Booking ledger

func (m *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

// ListAppointments matches Search against the reason only; names live in the
// identity store.
func (m *MemoryRepository) ListAppointments(_ context.Context, q AppointmentQuery) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	var result []Appointment
	for _, a := range m.appointments {
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Reason), search) {
			continue
		}
		result = append(result, a)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Time > result[j].Time
	})

	if q.Offset >= len(result) {
		return nil, nil
	}
	result = result[q.Offset:]
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (m *MemoryRepository) HasActiveAppointment(_ context.Context, doctorID uuid.UUID, date time.Time, t TimeOfDay, exclude uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slotClash(doctorID, date, t, exclude), nil
}

func (m *MemoryRepository) ActiveTimes(_ context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []TimeOfDay
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			result = append(result, a.Time)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (m *MemoryRepository) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Status.Active() && m.slotClash(a.DoctorID, a.Date, a.Time, uuid.Nil) {
		return nil, ErrDuplicateSlot
	}
	a.ID = uuid.New()
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.appointments[a.ID] = a
	return &a, nil
}

func (m *MemoryRepository) MoveAppointment(_ context.Context, id, doctorID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || !a.Status.Active() {
		return nil, ErrStaleAppointment
	}
	if m.slotClash(doctorID, date, t, id) {
		return nil, ErrDuplicateSlot
	}
	a.DoctorID = doctorID
	a.Date = date
	a.Time = t
	a.UpdatedAt = m.now()
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, notes *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrStaleAppointment
	}
	if to.Active() && !from.Active() && m.slotClash(a.DoctorID, a.Date, a.Time, id) {
		return nil, ErrDuplicateSlot
	}
	a.Status = to
	if notes != nil {
		a.Notes = *notes
	}
	a.UpdatedAt = m.now()
	m.appointments[id] = a
	return &a, nil
}

// Reminders

func (m *MemoryRepository) ActiveBetween(_ context.Context, fromDate, toDate time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.Status.Active() && !a.Date.Before(fromDate) && !a.Date.After(toDate) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (m *MemoryRepository) RecordReminder(_ context.Context, appointmentID uuid.UUID, reminderType string, hoursBefore int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%d", appointmentID, reminderType, hoursBefore)
	if m.reminders[key] {
		return false, nil
	}
	m.reminders[key] = true
	return true, nil
}

// Event logging

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}
