package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

type TimeSlotResponse struct {
	Time    string `json:"time"`
	Display string `json:"display"`
}

type AvailabilityCheckResponse struct {
	AvailableTimes []TimeSlotResponse `json:"available_times"`
	DoctorName     string             `json:"doctor_name"`
	Date           string             `json:"date"`
	Message        string             `json:"message,omitempty"`
}

type SlotResponse struct {
	Time        string `json:"time"`
	Display     string `json:"display"`
	IsAvailable bool   `json:"is_available"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type WindowRequest struct {
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"`
	DayName   string    `json:"day_name"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

type CreateAppointmentRequest struct {
	DoctorID        string  `json:"doctor_id"`
	PatientID       *string `json:"patient_id,omitempty"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	AppointmentType string  `json:"appointment_type,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
}

type RescheduleRequest struct {
	DoctorID *string `json:"doctor_id,omitempty"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
}

type TransitionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Display         string    `json:"display"`
	AppointmentType string    `json:"appointment_type"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

type ErrorResponse struct {
	Error        string             `json:"error"`
	Details      string             `json:"details,omitempty"`
	StatusCode   int                `json:"status_code"`
	Alternatives []TimeSlotResponse `json:"alternatives,omitempty"`
}

func toTimeSlots(times []scheduling.TimeOfDay) []TimeSlotResponse {
	out := make([]TimeSlotResponse, 0, len(times))
	for _, t := range times {
		out = append(out, TimeSlotResponse{Time: t.String(), Display: t.Display()})
	}
	return out
}

func toWindowResponse(w scheduling.AvailabilityWindow) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DoctorID:  w.DoctorID,
		DayOfWeek: int(w.DayOfWeek),
		DayName:   w.DayOfWeek.String(),
		StartTime: w.StartTime.String(),
		EndTime:   w.EndTime.String(),
		IsActive:  w.IsActive,
	}
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		Date:            a.Date.Format(time.DateOnly),
		Time:            a.Time.String(),
		Display:         a.Time.Display(),
		AppointmentType: string(a.Type),
		Status:          string(a.Status),
		Reason:          a.Reason,
		Notes:           a.Notes,
		DurationMinutes: a.DurationMinutes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
