package dto

import "flowgate/backend/app/models"

type SubmitCommandRequest struct {
	DeviceID    string `json:"device_id"`
	Command     string `json:"command"`
	TimeoutSecs int    `json:"timeout_secs,omitempty"`
}

type SubmitCommandResponse struct {
	Success bool                  `json:"success"`
	Command *models.RemoteCommand `json:"command"`
}

// ClaimResponse carries the claimed record, or null when nothing was pending
// (or the poller lost the claim race, which looks the same from outside).
type ClaimResponse struct {
	Command *models.RemoteCommand `json:"command"`
}

type ReportResultRequest struct {
	CommandID    string `json:"command_id"`
	ExitCode     *int   `json:"exit_code"`
	Output       string `json:"output"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type HistoryResponse struct {
	Commands []models.RemoteCommand `json:"commands"`
	Total    int64                  `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
}

// ErrorResponse is the uniform rejection body: error names the category,
// message says what to do about it.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type OnlineResponse struct {
	DeviceID string `json:"device_id"`
	Online   bool   `json:"online"`
}
