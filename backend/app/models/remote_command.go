package models

import "time"

// Command lifecycle states. pending and running are the only non-terminal
// states; a completed/failed record never changes again.
const (
	CommandPending   = "pending"
	CommandRunning   = "running"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
)

// RemoteCommand is one queued shell command for an edge gateway. Gateways sit
// behind NAT and only ever poll outbound, so the row doubles as the mailbox:
// the dashboard writes it, the gateway claims it, the result lands back on it.
type RemoteCommand struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	DeviceID     string     `gorm:"size:191;index:idx_cmd_claim,priority:1" json:"device_id"`
	Command      string     `gorm:"type:text" json:"command"`
	Status       string     `gorm:"size:32;index:idx_cmd_claim,priority:2" json:"status"`
	SubmittedBy  string     `gorm:"size:255" json:"submitted_by"`
	TimeoutSecs  int        `json:"timeout_secs"`
	ExitCode     *int       `json:"exit_code"`
	Output       string     `gorm:"type:longtext" json:"output"`
	ErrorMessage string     `gorm:"size:512" json:"error_message"`
	Metadata     string     `gorm:"type:text" json:"metadata"` // JSON: submitter ip + user agent
	CreatedAt    time.Time  `gorm:"autoCreateTime;index:idx_cmd_claim,priority:3" json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// Terminal reports whether the record reached a final state.
func (c *RemoteCommand) Terminal() bool {
	return c.Status == CommandCompleted || c.Status == CommandFailed
}
