package repo

import (
	"errors"
	"time"

	"flowgate/backend/app/models"

	"gorm.io/gorm"
)

// RemoteCommandRepository is the durable command queue. All state transitions
// go through conditional updates keyed on the current status, so concurrent
// writers coordinate entirely through the database and never through locks.
type RemoteCommandRepository struct {
	db *gorm.DB
}

func NewRemoteCommandRepository(db *gorm.DB) *RemoteCommandRepository {
	return &RemoteCommandRepository{db: db}
}

func (r *RemoteCommandRepository) Create(cmd *models.RemoteCommand) error {
	return r.db.Create(cmd).Error
}

func (r *RemoteCommandRepository) FindByID(id string) (*models.RemoteCommand, error) {
	var cmd models.RemoteCommand
	if err := r.db.Where("id = ?", id).First(&cmd).Error; err != nil {
		return nil, err
	}
	return &cmd, nil
}

// CountPending returns the number of not-yet-claimed commands for a device.
func (r *RemoteCommandRepository) CountPending(deviceID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.RemoteCommand{}).
		Where("device_id = ? AND status = ?", deviceID, models.CommandPending).
		Count(&count).Error
	return count, err
}

// OldestPending returns the next claim candidate for a device, or nil when
// the queue is empty.
func (r *RemoteCommandRepository) OldestPending(deviceID string) (*models.RemoteCommand, error) {
	var cmd models.RemoteCommand
	err := r.db.Where("device_id = ? AND status = ?", deviceID, models.CommandPending).
		Order("created_at ASC").
		First(&cmd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Claim transitions a record from pending to running, but only if it is still
// pending at update time. Returns false when another poller already took it;
// the compare-and-swap on status is what guarantees at-most-one claimant.
func (r *RemoteCommandRepository) Claim(id string, now time.Time) (bool, error) {
	res := r.db.Model(&models.RemoteCommand{}).
		Where("id = ? AND status = ?", id, models.CommandPending).
		Updates(map[string]any{
			"status":     models.CommandRunning,
			"started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Finish moves a record to a terminal state. The update only applies while the
// record is still pending or running, so a duplicate or stale agent report
// cannot overwrite a result that already landed.
func (r *RemoteCommandRepository) Finish(id, status string, exitCode int, output, errorMessage string, now time.Time) (bool, error) {
	res := r.db.Model(&models.RemoteCommand{}).
		Where("id = ? AND status IN ?", id, []string{models.CommandPending, models.CommandRunning}).
		Updates(map[string]any{
			"status":        status,
			"exit_code":     exitCode,
			"output":        output,
			"error_message": errorMessage,
			"completed_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByDevice returns one page of a device's commands, newest first, plus the
// total count for pagination.
func (r *RemoteCommandRepository) ListByDevice(deviceID string, limit, offset int) ([]models.RemoteCommand, int64, error) {
	var total int64
	if err := r.db.Model(&models.RemoteCommand{}).
		Where("device_id = ?", deviceID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var cmds []models.RemoteCommand
	err := r.db.Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&cmds).Error
	if err != nil {
		return nil, 0, err
	}
	return cmds, total, nil
}
