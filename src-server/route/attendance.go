package route

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/metric"
	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"
)

type RecordRespBody struct {
	ID                 string `json:"id"`
	EventID            string `json:"eventId"`
	UserID             string `json:"userId"`
	Status             string `json:"status"`
	WaitlistPosition   int    `json:"waitlistPosition,omitempty"`
	AttendanceMode     string `json:"attendanceMode,omitempty"`
	RequestedMode      string `json:"requestedMode,omitempty"`
	ConfirmationStatus string `json:"confirmationStatus,omitempty"`
	BailReason         string `json:"bailReason,omitempty"`
	CreatedAtUnixUTC   int64  `json:"createdAtUnixUTC"`
	UpdatedAtUnixUTC   int64  `json:"updatedAtUnixUTC"`
}

func toRecordRespBody(record *model.AttendanceRecord) RecordRespBody {
	return RecordRespBody{
		ID:                 record.ID,
		EventID:            record.EventID,
		UserID:             record.UserID,
		Status:             string(record.Status),
		WaitlistPosition:   record.WaitlistPosition,
		AttendanceMode:     string(record.AttendanceMode),
		RequestedMode:      string(record.RequestedMode),
		ConfirmationStatus: string(record.ConfirmationStatus),
		BailReason:         record.BailReason,
		CreatedAtUnixUTC:   record.CreatedAtUnixUTC,
		UpdatedAtUnixUTC:   record.UpdatedAtUnixUTC,
	}
}

func toRecordRespBodies(records []*model.AttendanceRecord) []RecordRespBody {
	respBody := make([]RecordRespBody, 0, len(records))
	for _, record := range records {
		respBody = append(respBody, toRecordRespBody(record))
	}
	return respBody
}

func Attendance(muxer *http.ServeMux, as *utils.AppState) {
	type RsvpReqBody struct {
		EventID        string `json:"eventId"`
		Status         string `json:"status"`
		AttendanceMode string `json:"attendanceMode"`
	}
	type RsvpRespBody struct {
		Outcome  string           `json:"outcome"`
		Position int              `json:"position,omitempty"`
		RecordID string           `json:"recordId"`
		Record   RecordRespBody   `json:"record"`
		Promoted []RecordRespBody `json:"promoted"`
	}

	muxer.HandleFunc("POST /attendance/rsvp", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromContext(w, r)
			if !ok {
				return
			}
			var reqBody RsvpReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			startTimer := time.Now()
			outcome, err := as.Engine.ApplyRsvp(
				r.Context(),
				reqBody.EventID,
				sessionModel.UserID,
				model.AttendanceStatus(reqBody.Status),
				model.AttendanceMode(reqBody.AttendanceMode),
			)
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
			metric.ObserveOutcome(outcome)
			notify.DispatchOutcome(as.Notifier, as.Config.GetNotifyTimeout(), outcome)

			writeJSON(w, http.StatusOK, RsvpRespBody{
				Outcome:  string(outcome.Kind),
				Position: outcome.Position,
				RecordID: outcome.Record.ID,
				Record:   toRecordRespBody(outcome.Record),
				Promoted: toRecordRespBodies(outcome.Promoted),
			})
		}))

	type CancelReqBody struct {
		EventID string `json:"eventId"`
	}
	type CancelRespBody struct {
		Cancelled bool             `json:"cancelled"`
		Promoted  []RecordRespBody `json:"promoted"`
	}

	muxer.HandleFunc("POST /attendance/cancel", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromContext(w, r)
			if !ok {
				return
			}
			var reqBody CancelReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			startTimer := time.Now()
			result, err := as.Engine.CancelRsvp(r.Context(), reqBody.EventID, sessionModel.UserID)
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
			metric.ObservePromoted(len(result.Promoted))
			notify.DispatchPromoted(as.Notifier, as.Config.GetNotifyTimeout(), result.Promoted)

			writeJSON(w, http.StatusOK, CancelRespBody{
				Cancelled: result.Cancelled,
				Promoted:  toRecordRespBodies(result.Promoted),
			})
		}))

	type ConfirmReqBody struct {
		RecordID string `json:"recordId"`
	}
	type ConfirmRespBody struct {
		Confirmed bool           `json:"confirmed"`
		Record    RecordRespBody `json:"record"`
	}

	muxer.HandleFunc("POST /attendance/confirm", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromContext(w, r)
			if !ok {
				return
			}
			var reqBody ConfirmReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			startTimer := time.Now()
			record, err := as.Engine.ConfirmAttendance(r.Context(), reqBody.RecordID, sessionModel.UserID)
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)

			writeJSON(w, http.StatusOK, ConfirmRespBody{
				Confirmed: true,
				Record:    toRecordRespBody(record),
			})
		}))

	type BailOutReqBody struct {
		RecordID string `json:"recordId"`
		Reason   string `json:"reason"`
	}
	type BailOutRespBody struct {
		BailedOut bool             `json:"bailedOut"`
		Record    RecordRespBody   `json:"record"`
		Promoted  []RecordRespBody `json:"promoted"`
	}

	muxer.HandleFunc("POST /attendance/bail-out", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			sessionModel, ok := sessionFromContext(w, r)
			if !ok {
				return
			}
			var reqBody BailOutReqBody
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			startTimer := time.Now()
			result, err := as.Engine.BailOut(r.Context(), reqBody.RecordID, sessionModel.UserID, reqBody.Reason)
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
			metric.ObservePromoted(len(result.Promoted))
			notify.DispatchPromoted(as.Notifier, as.Config.GetNotifyTimeout(), result.Promoted)

			writeJSON(w, http.StatusOK, BailOutRespBody{
				BailedOut: true,
				Record:    toRecordRespBody(result.Record),
				Promoted:  toRecordRespBodies(result.Promoted),
			})
		}))

	type RosterRespBody struct {
		EventID    string           `json:"eventId"`
		Capacity   *int             `json:"capacity"`
		Going      []RecordRespBody `json:"going"`
		Waitlist   []RecordRespBody `json:"waitlist"`
		Interested int              `json:"interested"`
		NotGoing   int              `json:"notGoing"`
	}

	muxer.HandleFunc("GET /attendance/events/{eventID}", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			startTimer := time.Now()
			roster, err := as.Engine.EventRoster(r.Context(), r.PathValue("eventID"))
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseRead, startTimer)

			respBody := RosterRespBody{
				EventID:    roster.EventID,
				Going:      toRecordRespBodies(roster.Going),
				Waitlist:   toRecordRespBodies(roster.Waitlist),
				Interested: roster.Interested,
				NotGoing:   roster.NotGoing,
			}
			if roster.Limited {
				respBody.Capacity = &roster.Capacity
			}
			writeJSON(w, http.StatusOK, respBody)
		}))

	type SweepReqBody struct {
		// natural language, e.g. "tomorrow 8am"; blank means now
		At string `json:"at"`
	}
	type SweepRespBody struct {
		Processed int `json:"processed"`
		Sent      int `json:"sent"`
		Failed    int `json:"failed"`
	}

	muxer.HandleFunc("POST /attendance/sweep", AuthMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody SweepReqBody
			if r.ContentLength != 0 {
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
					writeError(w, http.StatusBadRequest, "Invalid request body")
					return
				}
			}
			at, err := as.ParseReferenceTime(reqBody.At)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Can't understand the reference time")
				return
			}

			startTimer := time.Now()
			result, err := as.Engine.RunConfirmationSweepAt(r.Context(), at)
			if err != nil {
				writeAttendanceError(w, err)
				return
			}
			utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
			metric.ObserveSweep(result)

			writeJSON(w, http.StatusOK, SweepRespBody{
				Processed: result.Processed,
				Sent:      result.Sent,
				Failed:    result.Failed,
			})
		}))
}

func sessionFromContext(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Can't get session from middleware")
	}
	return sessionModel, ok
}

// StatusCode maps an engine error to the HTTP status returned for it.
func StatusCode(err error) int {
	switch attendance.KindOf(err) {
	case attendance.KindValidation:
		return http.StatusBadRequest
	case attendance.KindAuthorization:
		return http.StatusForbidden
	case attendance.KindInvalidState:
		return http.StatusConflict
	case attendance.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeAttendanceError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		slog.Error("attendance request failed", "error", err)
		writeError(w, code, "Can't update attendance right now")
		return
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("can't write response body", "error", err)
	}
}
