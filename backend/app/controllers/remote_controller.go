package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"flowgate/backend/app/dto"
	"flowgate/backend/app/middleware"
	"flowgate/backend/app/models"
	"flowgate/backend/app/presence"
	"flowgate/backend/app/services"
	"flowgate/backend/global"
)

// RemoteController is the HTTP boundary of the command dispatch queue:
// submit (dashboard), claim + result (gateway agent), history and online
// (dashboard and trusted callers).
type RemoteController struct {
	Commands *services.RemoteCommandService
	Presence *presence.Tracker
}

func NewRemoteController(commands *services.RemoteCommandService, tracker *presence.Tracker) *RemoteController {
	return &RemoteController{Commands: commands, Presence: tracker}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, name, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: name, Message: message})
}

// writeServiceError maps the service error taxonomy onto HTTP. Each rejection
// category keeps its own status + error name so the dashboard can render
// blocked vs rate-limited vs invalid differently.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, services.ErrCommandBlocked):
		writeError(w, http.StatusForbidden, "Blocked", "This command is blocked for safety reasons")
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Validation error", err.Error())
	case errors.Is(err, services.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Rate limited", err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "Command not found or already completed")
	default:
		global.Logger.Error().Err(err).Msg("remote command store error")
		writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// Submit handles POST /api/remote/command.
func (c *RemoteController) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", "invalid JSON body")
		return
	}
	meta := services.SubmitMeta{
		IP:        headerOr(r, "X-Forwarded-For", "unknown"),
		UserAgent: headerOr(r, "User-Agent", "unknown"),
	}
	cmd, err := c.Commands.Submit(middleware.GetCaller(r.Context()), req.DeviceID, req.Command, req.TimeoutSecs, meta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	global.Logger.Info().
		Str("command_id", cmd.ID).
		Str("device_id", cmd.DeviceID).
		Str("submitted_by", cmd.SubmittedBy).
		Msg("command queued")
	writeJSON(w, http.StatusOK, dto.SubmitCommandResponse{Success: true, Command: cmd})
}

// Claim handles GET /api/remote/pending. Agent-only (enforced in the router).
// An empty queue and a lost claim race both answer {"command": null}.
func (c *RemoteController) Claim(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "Validation error", "device_id query parameter is required")
		return
	}
	if err := c.Presence.Touch(r.Context(), deviceID); err != nil {
		global.Logger.Warn().Err(err).Str("device_id", deviceID).Msg("presence touch failed")
	}
	cmd, err := c.Commands.Claim(deviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cmd != nil {
		global.Logger.Info().
			Str("command_id", cmd.ID).
			Str("device_id", cmd.DeviceID).
			Msg("command claimed")
	}
	writeJSON(w, http.StatusOK, dto.ClaimResponse{Command: cmd})
}

// Result handles POST /api/remote/result. Agent-only.
func (c *RemoteController) Result(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error", "invalid JSON body")
		return
	}
	if req.CommandID == "" {
		writeError(w, http.StatusBadRequest, "Validation error", "command_id is required")
		return
	}
	if req.ExitCode == nil {
		writeError(w, http.StatusBadRequest, "Validation error", "exit_code (number) is required")
		return
	}
	cmd, err := c.Commands.ReportResult(req.CommandID, *req.ExitCode, req.Output, req.ErrorMessage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	global.Logger.Info().
		Str("command_id", cmd.ID).
		Str("status", cmd.Status).
		Int("exit_code", *req.ExitCode).
		Msg("command result recorded")
	writeJSON(w, http.StatusOK, dto.SubmitCommandResponse{Success: true, Command: cmd})
}

// History handles GET /api/remote/history.
func (c *RemoteController) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = services.DefaultHistoryLimit
	}
	if limit > services.MaxHistoryLimit {
		limit = services.MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	cmds, total, err := c.Commands.History(middleware.GetCaller(r.Context()), q.Get("device_id"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cmds == nil {
		cmds = []models.RemoteCommand{}
	}
	writeJSON(w, http.StatusOK, dto.HistoryResponse{Commands: cmds, Total: total, Limit: limit, Offset: offset})
}

// Online handles GET /api/remote/online: has the device polled recently.
func (c *RemoteController) Online(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	if !caller.Authenticated {
		writeError(w, http.StatusUnauthorized, "Unauthorized", services.ErrUnauthenticated.Error())
		return
	}
	if !services.CanOperateRemoteCommands(caller) {
		writeError(w, http.StatusForbidden, "Forbidden", services.ErrForbidden.Error())
		return
	}
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "Validation error", "device_id query parameter is required")
		return
	}
	online, err := c.Presence.Online(r.Context(), deviceID)
	if err != nil {
		global.Logger.Error().Err(err).Str("device_id", deviceID).Msg("presence lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal error", "failed to check device presence")
		return
	}
	writeJSON(w, http.StatusOK, dto.OnlineResponse{DeviceID: deviceID, Online: online})
}

func headerOr(r *http.Request, name, fallback string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return fallback
}
