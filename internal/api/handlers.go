package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

// availabilityCheckHandler lists the open times of a doctor's day.
func availabilityCheckHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("doctor_id") == "" || q.Get("date") == "" {
			writeError(w, http.StatusBadRequest, "missing_parameters", "doctor_id and date are required")
			return
		}
		doctorID, err := uuid.Parse(q.Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, err := scheduling.ParseDate(q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		listing, err := svc.ListOpenSlots(r.Context(), doctorID, date)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityCheckResponse{
			AvailableTimes: toTimeSlots(listing.Times),
			DoctorName:     listing.DoctorName,
			Date:           listing.Date.Format(time.DateOnly),
			Message:        listing.Message,
		})
	}
}

func doctorWindowsHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "invalid_doctor_id")
		if !ok {
			return
		}

		windows, err := svc.ListDoctorWindows(r.Context(), doctorID)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func doctorSlotsHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathID(w, r, "invalid_doctor_id")
		if !ok {
			return
		}
		date, err := scheduling.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		var opts scheduling.SlotOptions
		if g := r.URL.Query().Get("granularity"); g != "" {
			minutes, err := strconv.Atoi(g)
			if err != nil || minutes <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_granularity", "granularity must be a positive number of minutes")
				return
			}
			opts.Granularity = time.Duration(minutes) * time.Minute
		}

		slots, err := svc.Slots(r.Context(), doctorID, date, opts)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		resp := SlotsResponse{DoctorID: doctorID, Date: date.Format(time.DateOnly), Slots: make([]SlotResponse, 0, len(slots))}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{Time: s.Time.String(), Display: s.Time.Display(), IsAvailable: s.IsAvailable})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createWindowHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeWindow(w, r)
		if !ok {
			return
		}

		win, err := svc.CreateWindow(r.Context(), actor(r), in)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWindowResponse(*win))
	}
}

func updateWindowHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_window_id")
		if !ok {
			return
		}
		in, ok := decodeWindow(w, r)
		if !ok {
			return
		}

		win, err := svc.UpdateWindow(r.Context(), actor(r), id, in)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(*win))
	}
}

func deleteWindowHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_window_id")
		if !ok {
			return
		}

		if err := svc.DeleteWindow(r.Context(), actor(r), id); err != nil {
			handleError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createAppointmentHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, at, ok := parseDateTime(w, req.Date, req.Time)
		if !ok {
			return
		}

		in := scheduling.BookingInput{
			DoctorID:        doctorID,
			Date:            date,
			Time:            at,
			Type:            scheduling.AppointmentType(req.AppointmentType),
			Reason:          req.Reason,
			Notes:           req.Notes,
			DurationMinutes: req.DurationMinutes,
		}
		if req.PatientID != nil {
			patientID, err := uuid.Parse(*req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			in.PatientID = &patientID
		}

		appt, err := svc.BookAppointment(r.Context(), actor(r), in)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := scheduling.ListFilter{Search: q.Get("search")}

		if s := q.Get("status"); s != "" {
			status, ok := scheduling.ParseStatus(s)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown status "+strconv.Quote(s))
				return
			}
			f.Status = &status
		}
		var ok bool
		if f.Limit, ok = queryInt(w, q.Get("limit"), "limit"); !ok {
			return
		}
		if f.Offset, ok = queryInt(w, q.Get("offset"), "offset"); !ok {
			return
		}

		appts, err := svc.ListAppointments(r.Context(), actor(r), f)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		resp := AppointmentListResponse{Appointments: make([]AppointmentResponse, 0, len(appts)), Limit: f.Limit, Offset: f.Offset}
		for _, a := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), actor(r), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func rescheduleAppointmentHandler(svc *scheduling.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, at, ok := parseDateTime(w, req.Date, req.Time)
		if !ok {
			return
		}

		in := scheduling.RescheduleInput{Date: date, Time: at}
		if req.DoctorID != nil {
			doctorID, err := uuid.Parse(*req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			in.DoctorID = &doctorID
		}

		appt, err := svc.RescheduleAppointment(r.Context(), actor(r), id, in)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

// transitionHandler serves the status action endpoints; the body is optional.
func transitionHandler(svc *scheduling.Service, log zerolog.Logger, to scheduling.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.TransitionAppointment(r.Context(), actor(r), id, to, req.Notes)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func handleError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var ve *scheduling.ValidationError
	if errors.As(err, &ve) {
		if errors.Is(ve, scheduling.ErrSlotTaken) {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:        "slot_taken",
				Details:      ve.Error(),
				StatusCode:   http.StatusConflict,
				Alternatives: toTimeSlots(ve.Alternatives),
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, validationCode(ve), ve.Error())
		return
	}

	switch {
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, identity.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, scheduling.ErrStaleAppointment):
		writeError(w, http.StatusConflict, "stale_appointment", err.Error())
	default:
		log.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func validationCode(ve *scheduling.ValidationError) string {
	switch {
	case errors.Is(ve, scheduling.ErrPastDate):
		return "past_date"
	case errors.Is(ve, scheduling.ErrWeekendUnavailable):
		return "weekend_unavailable"
	case errors.Is(ve, scheduling.ErrDoctorUnavailable):
		return "doctor_unavailable"
	case errors.Is(ve, scheduling.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(ve, scheduling.ErrDuplicateWindow):
		return "duplicate_window"
	case errors.Is(ve, scheduling.ErrInvalidStatusTransition):
		return "invalid_status_transition"
	case errors.Is(ve, scheduling.ErrNotCancellable):
		return "not_cancellable"
	case errors.Is(ve, scheduling.ErrNotEditable):
		return "not_editable"
	default:
		return "invalid_input"
	}
}

// actor is only called behind ActorMiddleware.
func actor(r *http.Request) identity.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

func pathID(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDateTime(w http.ResponseWriter, rawDate, rawTime string) (time.Time, scheduling.TimeOfDay, bool) {
	date, err := scheduling.ParseDate(rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, 0, false
	}
	at, err := scheduling.ParseTimeOfDay(rawTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
		return time.Time{}, 0, false
	}
	return date, at, true
}

func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func decodeWindow(w http.ResponseWriter, r *http.Request) (scheduling.WindowInput, bool) {
	var req WindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return scheduling.WindowInput{}, false
	}
	if req.DayOfWeek == nil {
		writeError(w, http.StatusBadRequest, "invalid_day_of_week", "day_of_week is required")
		return scheduling.WindowInput{}, false
	}
	start, err := scheduling.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
		return scheduling.WindowInput{}, false
	}
	end, err := scheduling.ParseTimeOfDay(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
		return scheduling.WindowInput{}, false
	}
	return scheduling.WindowInput{
		DayOfWeek: scheduling.Weekday(*req.DayOfWeek),
		StartTime: start,
		EndTime:   end,
		IsActive:  req.IsActive,
	}, true
}
