package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/handler/dto"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/service"
)

// MeetingService is the subset of service.MeetingService used here.
type MeetingService interface {
	ListAll(ctx context.Context, caller *model.Identity) ([]*model.Meeting, error)
	ListMine(ctx context.Context, caller *model.Identity) ([]*model.Meeting, error)
	GetByID(ctx context.Context, caller *model.Identity, id string) (*model.Meeting, error)
	GetByPublicLink(ctx context.Context, linkID string) (*model.Meeting, error)
	Create(ctx context.Context, caller *model.Identity, in service.MeetingInput) (*model.Meeting, error)
	Update(ctx context.Context, caller *model.Identity, id string, in service.MeetingInput) (bool, error)
	CancelOrDelete(ctx context.Context, caller *model.Identity, id string) (bool, error)
	HardDelete(ctx context.Context, caller *model.Identity, id string) (bool, error)
	Invite(ctx context.Context, caller *model.Identity, meetingID string, emails []string) (*model.InvitationResult, error)
	Invitations(ctx context.Context, caller *model.Identity, meetingID string) ([]*model.InvitationRecord, error)
	JoinURL(m *model.Meeting) string
	Now() time.Time
}

// MeetingHandler handles meeting CRUD, public join lookups and invitations.
type MeetingHandler struct {
	meetings MeetingService
	logger   *slog.Logger
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(meetings MeetingService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, logger: logger}
}

// ListAll handles GET /api/meeting.
func (h *MeetingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	meetings, err := h.meetings.ListAll(r.Context(), caller)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(meetings))
}

// ListMine handles GET /api/meeting/my-meetings.
func (h *MeetingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	meetings, err := h.meetings.ListMine(r.Context(), caller)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(meetings))
}

// Get handles GET /api/meeting/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	m, err := h.meetings.GetByID(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(m))
}

// Join handles GET /api/meeting/join/{guid}. It needs no authentication;
// unknown and malformed links both answer 404.
func (h *MeetingHandler) Join(w http.ResponseWriter, r *http.Request) {
	m, err := h.meetings.GetByPublicLink(r.Context(), chi.URLParam(r, "guid"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if m == nil {
		handleServiceError(w, r, h.logger, service.ErrMeetingNotFound)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.toResponse(m))
}

// Create handles POST /api/meeting.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller := auth.IdentityFromContext(r.Context())

	m, err := h.meetings.Create(r.Context(), caller, toMeetingInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/meeting/"+m.ID)
	writeJSON(w, http.StatusCreated, h.toResponse(m))
}

// Update handles PUT /api/meeting. The meeting id travels in the body.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id: is required")
		return
	}
	caller := auth.IdentityFromContext(r.Context())

	ok, err := h.meetings.Update(r.Context(), caller, req.ID, toMeetingInput(req.CreateMeetingRequest))
	h.writeMutation(w, r, ok, err)
}

// Cancel handles DELETE /api/meeting/{id}. The meeting is marked canceled
// and the nightly sweep removes the row.
func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	ok, err := h.meetings.CancelOrDelete(r.Context(), caller, chi.URLParam(r, "id"))
	h.writeMutation(w, r, ok, err)
}

// HardDelete handles DELETE /api/meeting/hard/{id}. Admin only.
func (h *MeetingHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	ok, err := h.meetings.HardDelete(r.Context(), caller, chi.URLParam(r, "id"))
	h.writeMutation(w, r, ok, err)
}

// Invite handles POST /api/meeting/invite.
func (h *MeetingHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req dto.InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller := auth.IdentityFromContext(r.Context())

	result, err := h.meetings.Invite(r.Context(), caller, req.MeetingID, req.EmailList)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := dto.InviteResponse{Sent: result.Sent, Failed: result.Failed}
	if resp.Sent == nil {
		resp.Sent = []string{}
	}
	if resp.Failed == nil {
		resp.Failed = []model.FailedRecipient{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Invitations handles GET /api/meeting/{id}/invitations. Owner only.
func (h *MeetingHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	records, err := h.meetings.Invitations(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToInvitationRecordResponses(records))
}

func (h *MeetingHandler) writeMutation(w http.ResponseWriter, r *http.Request, ok bool, err error) {
	switch {
	case err != nil:
		handleServiceError(w, r, h.logger, err)
	case !ok:
		handleServiceError(w, r, h.logger, service.ErrMeetingNotFound)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *MeetingHandler) toResponse(m *model.Meeting) *dto.MeetingResponse {
	return dto.ToMeetingResponse(m, h.meetings.JoinURL(m), h.meetings.Now())
}

func (h *MeetingHandler) toResponses(meetings []*model.Meeting) []*dto.MeetingResponse {
	now := h.meetings.Now()
	out := make([]*dto.MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, dto.ToMeetingResponse(m, h.meetings.JoinURL(m), now))
	}
	return out
}

func toMeetingInput(req dto.CreateMeetingRequest) service.MeetingInput {
	return service.MeetingInput{
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		FilePath:        req.FilePath,
	}
}
