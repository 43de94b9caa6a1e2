package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flowgate/backend/app/models"
	"flowgate/backend/app/repo"
	"flowgate/backend/app/safety"

	"github.com/google/uuid"
)

const (
	DefaultTimeoutSecs  = 30
	MaxTimeoutSecs      = 120
	MaxPendingPerDevice = 5
	MaxOutputBytes      = 10240
	TruncationMarker    = "\n... [output truncated at 10KB]"
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Caller is the identity the auth layer resolved for a request: either a
// trusted pre-shared key (the gateway agent and server-to-server callers) or
// a dashboard session with a role.
type Caller struct {
	Authenticated bool
	TrustedKey    bool
	Name          string
	Role          string
	Superadmin    bool
}

// CanOperateRemoteCommands is the single capability gate for the dispatch
// queue; every entry point asks this instead of re-checking role flags.
func CanOperateRemoteCommands(c Caller) bool {
	return c.TrustedKey || c.Role == "admin" || c.Superadmin
}

// SubmitMeta is free-form request context captured for audit purposes.
type SubmitMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

type RemoteCommandService struct {
	commands *repo.RemoteCommandRepository
}

func NewRemoteCommandService(commands *repo.RemoteCommandRepository) *RemoteCommandService {
	return &RemoteCommandService{commands: commands}
}

func (s *RemoteCommandService) authorize(c Caller) error {
	if !c.Authenticated {
		return ErrUnauthenticated
	}
	if !CanOperateRemoteCommands(c) {
		return ErrForbidden
	}
	return nil
}

// Submit queues a command for a device. Order matters: authorization, then
// the safety blocklist, then the pending ceiling, then the insert. A failed
// submission is never retried here; retrying could duplicate a destructive
// action.
func (s *RemoteCommandService) Submit(caller Caller, deviceID, command string, timeoutSecs int, meta SubmitMeta) (*models.RemoteCommand, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidInput)
	}
	command = strings.TrimSpace(command)
	if err := safety.ValidateCommand(command); err != nil {
		if err == safety.ErrBlockedCommand {
			return nil, ErrCommandBlocked
		}
		return nil, fmt.Errorf("%w: command is required", ErrInvalidInput)
	}

	// Pending ceiling fails closed: a count error rejects the submission
	// rather than letting an unknown backlog grow.
	pending, err := s.commands.CountPending(deviceID)
	if err != nil {
		return nil, fmt.Errorf("check rate limit: %w", err)
	}
	if pending >= MaxPendingPerDevice {
		return nil, fmt.Errorf("%w: maximum %d pending commands per device", ErrRateLimited, MaxPendingPerDevice)
	}

	metaJSON, _ := json.Marshal(meta)
	cmd := &models.RemoteCommand{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		Command:     command,
		Status:      models.CommandPending,
		SubmittedBy: caller.Name,
		TimeoutSecs: clampTimeout(timeoutSecs),
		Metadata:    string(metaJSON),
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, fmt.Errorf("insert command: %w", err)
	}
	return cmd, nil
}

// Claim hands the oldest pending command for a device to a polling agent,
// flipping it to running via a compare-and-swap on status. Losing the swap to
// a concurrent poller is not an error: it is indistinguishable from an empty
// queue on this tick, so the loser just gets nil.
func (s *RemoteCommandService) Claim(deviceID string) (*models.RemoteCommand, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidInput)
	}
	candidate, err := s.commands.OldestPending(deviceID)
	if err != nil {
		return nil, fmt.Errorf("fetch pending command: %w", err)
	}
	if candidate == nil {
		return nil, nil
	}
	won, err := s.commands.Claim(candidate.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("claim command: %w", err)
	}
	if !won {
		return nil, nil
	}
	return s.commands.FindByID(candidate.ID)
}

// ReportResult records an agent's execution outcome. Exit code zero means
// completed, anything else failed. The conditional update rejects reports for
// records that already reached a terminal state, which makes duplicate agent
// reports harmless.
func (s *RemoteCommandService) ReportResult(commandID string, exitCode int, output, errorMessage string) (*models.RemoteCommand, error) {
	if strings.TrimSpace(commandID) == "" {
		return nil, fmt.Errorf("%w: command_id is required", ErrInvalidInput)
	}
	status := models.CommandFailed
	if exitCode == 0 {
		status = models.CommandCompleted
	}
	ok, err := s.commands.Finish(commandID, status, exitCode, TruncateOutput(output), errorMessage, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update command result: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.commands.FindByID(commandID)
}

// History returns one page of a device's command records, newest first.
func (s *RemoteCommandService) History(caller Caller, deviceID string, limit, offset int) ([]models.RemoteCommand, int64, error) {
	if err := s.authorize(caller); err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, 0, fmt.Errorf("%w: device_id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.commands.ListByDevice(deviceID, limit, offset)
}

// TruncateOutput caps agent output at MaxOutputBytes and marks the cut, so a
// chatty command cannot bloat the store or the terminal view.
func TruncateOutput(output string) string {
	if len(output) <= MaxOutputBytes {
		return output
	}
	return output[:MaxOutputBytes] + TruncationMarker
}

func clampTimeout(secs int) int {
	if secs == 0 {
		secs = DefaultTimeoutSecs
	}
	if secs < 1 {
		return 1
	}
	if secs > MaxTimeoutSecs {
		return MaxTimeoutSecs
	}
	return secs
}
