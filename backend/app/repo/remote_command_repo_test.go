package repo_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"flowgate/backend/app/models"
	"flowgate/backend/app/repo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RemoteCommand{}))
	return db
}

func newPending(deviceID, command string, createdAt time.Time) *models.RemoteCommand {
	return &models.RemoteCommand{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		Command:     command,
		Status:      models.CommandPending,
		TimeoutSecs: 30,
		CreatedAt:   createdAt,
	}
}

func TestClaimIsExclusive(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	cmd := newPending("GW-1", "uptime", time.Now().UTC())
	require.NoError(t, r.Create(cmd))

	// N concurrent pollers race for the same pending record; the conditional
	// update must admit exactly one.
	const pollers = 10
	var wg sync.WaitGroup
	wins := make(chan bool, pollers)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := r.Claim(cmd.ID, time.Now().UTC())
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	got, err := r.FindByID(cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandRunning, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestOldestPendingIsFIFO(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	base := time.Now().UTC().Add(-time.Minute)
	first := newPending("GW-1", "first", base)
	second := newPending("GW-1", "second", base.Add(time.Second))
	third := newPending("GW-1", "third", base.Add(2*time.Second))
	// insert out of order on purpose
	require.NoError(t, r.Create(third))
	require.NoError(t, r.Create(first))
	require.NoError(t, r.Create(second))

	for _, want := range []string{"first", "second", "third"} {
		next, err := r.OldestPending("GW-1")
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, want, next.Command)
		won, err := r.Claim(next.ID, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, won)
	}

	next, err := r.OldestPending("GW-1")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestOldestPendingScopedToDevice(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	require.NoError(t, r.Create(newPending("GW-1", "uptime", time.Now().UTC())))

	next, err := r.OldestPending("GW-2")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestFinishRejectsTerminalRecords(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	cmd := newPending("GW-1", "uptime", time.Now().UTC())
	require.NoError(t, r.Create(cmd))
	won, err := r.Claim(cmd.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)

	ok, err := r.Finish(cmd.ID, models.CommandCompleted, 0, "up 3 days", "", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	// a duplicate report must not touch the stored result
	ok, err = r.Finish(cmd.ID, models.CommandFailed, 1, "stale", "late report", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.FindByID(cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandCompleted, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
	assert.Equal(t, "up 3 days", got.Output)
	assert.NotNil(t, got.CompletedAt)
}

func TestFinishAcceptsStillPendingRecords(t *testing.T) {
	// an agent may report for a record the backend never saw claimed, e.g.
	// after a crash between claim and report; pending is still non-terminal
	r := repo.NewRemoteCommandRepository(openDB(t))
	cmd := newPending("GW-1", "uptime", time.Now().UTC())
	require.NoError(t, r.Create(cmd))

	ok, err := r.Finish(cmd.ID, models.CommandFailed, 1, "", "agent restarted", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimRejectsNonPending(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	cmd := newPending("GW-1", "uptime", time.Now().UTC())
	require.NoError(t, r.Create(cmd))

	won, err := r.Claim(cmd.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, won)

	// running is not claimable again, and neither is a terminal record
	won, err = r.Claim(cmd.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)

	ok, err := r.Finish(cmd.ID, models.CommandCompleted, 0, "", "", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	won, err = r.Claim(cmd.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestListByDeviceNewestFirstWithTotal(t *testing.T) {
	r := repo.NewRemoteCommandRepository(openDB(t))
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		cmd := newPending("GW-1", "cmd", base.Add(time.Duration(i)*time.Minute))
		cmd.Command = cmd.Command + string(rune('0'+i))
		require.NoError(t, r.Create(cmd))
	}
	require.NoError(t, r.Create(newPending("GW-2", "other", base)))

	page, total, err := r.ListByDevice("GW-1", 3, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	require.Len(t, page, 3)
	assert.Equal(t, "cmd6", page[0].Command)
	assert.Equal(t, "cmd5", page[1].Command)
	assert.Equal(t, "cmd4", page[2].Command)

	page, total, err = r.ListByDevice("GW-1", 3, 6)
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	require.Len(t, page, 1)
	assert.Equal(t, "cmd0", page[0].Command)
}
