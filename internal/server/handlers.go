package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/logger"
)

const (
	msgInvalidPrompt  = "Invalid prompt"
	msgChatFailed     = "Something went wrong."
	msgInvalidBody    = "Invalid request body"
	msgMissingFields  = "Missing required fields: name, dateTime, reason"
	msgInvalidDate    = "Could not understand dateTime"
	msgPastDate       = "dateTime must be in the future"
	msgUnauthorized   = "Not authenticated with Google Calendar. Visit /auth/google first."
	msgCommitFailed   = "Failed to create calendar event"
	msgMissingCode    = "Missing authorization code"
	msgInvalidState   = "Invalid or expired OAuth state"
	msgExchangeFailed = "Failed to exchange authorization code"
)

type chatRequest struct {
	Prompt any `json:"prompt"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, msgInvalidPrompt, err)
		return
	}
	prompt, ok := req.Prompt.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		writeError(ctx, w, http.StatusBadRequest, msgInvalidPrompt, nil)
		return
	}

	if s.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
		defer cancel()
	}

	reply, err := s.deps.Chat.Process(ctx, prompt)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, msgChatFailed, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, chatResponse{Reply: reply})
}

type scheduleRequest struct {
	Name     string `json:"name"`
	DateTime string `json:"dateTime"`
	Reason   string `json:"reason"`
}

type scheduleResponse struct {
	Success   bool   `json:"success"`
	EventLink string `json:"eventLink"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scheduleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, msgInvalidBody, err)
		return
	}

	c := booking.Candidate{
		Name:        strings.TrimSpace(req.Name),
		RawDateTime: strings.TrimSpace(req.DateTime),
		Reason:      strings.TrimSpace(req.Reason),
	}
	ev, err := s.deps.Booker.Schedule(ctx, c, booking.SourceDirect)
	switch {
	case err == nil:
		writeJSON(ctx, w, http.StatusOK, scheduleResponse{Success: true, EventLink: ev.Link})
	case errors.Is(err, booking.ErrIncomplete):
		writeError(ctx, w, http.StatusBadRequest, msgMissingFields, err)
	case errors.Is(err, booking.ErrUnparseableDate):
		writeError(ctx, w, http.StatusBadRequest, msgInvalidDate, err)
	case errors.Is(err, booking.ErrPastDate):
		writeError(ctx, w, http.StatusBadRequest, msgPastDate, err)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(ctx, w, http.StatusUnauthorized, msgUnauthorized, err)
	default:
		logger.From(ctx).Error("direct booking failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: msgCommitFailed, Details: providerDetail(err)})
	}
}

// providerDetail is the calendar API's own message when there is one.
func providerDetail(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

func (s *Server) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.deps.Auth.AuthCodeURL(), http.StatusFound)
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	err := s.deps.Auth.Exchange(ctx, q.Get("code"), q.Get("state"))
	switch {
	case err == nil:
		writeJSON(ctx, w, http.StatusOK, authResponse{Success: true, Message: "Google Calendar connected."})
	case errors.Is(err, auth.ErrMissingCode):
		writeError(ctx, w, http.StatusBadRequest, msgMissingCode, err)
	case errors.Is(err, auth.ErrInvalidState):
		writeError(ctx, w, http.StatusBadRequest, msgInvalidState, err)
	default:
		writeError(ctx, w, http.StatusInternalServerError, msgExchangeFailed, err)
	}
}

type healthResponse struct {
	Status                string `json:"status"`
	CalendarAuthenticated bool   `json:"calendarAuthenticated"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	authed := s.deps.Status != nil && s.deps.Status.IsAuthenticated()
	writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok", CalendarAuthenticated: authed})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
