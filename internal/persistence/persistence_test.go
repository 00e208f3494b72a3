package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/stretchr/testify/assert"
	bolt "go.etcd.io/bbolt"
)

const (
	vehicleId = "test-vehicle"
)

func createPersistence(t *testing.T) Persistence {
	dbPath := filepath.Join(t.TempDir(), "db", "test.db")
	p := NewPersistence(dbPath)
	err := p.Init()
	assert.NoError(t, err)
	return p
}

func TestPersistence_Init_CreatesParentDir(t *testing.T) {
	// GIVEN
	dir := filepath.Join(t.TempDir(), "a", "b")
	p := NewPersistence(filepath.Join(dir, "test.db"))

	// WHEN
	err := p.Init()

	// THEN
	assert.NoError(t, err)
	info, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPersistence_LoadGasMode_Missing(t *testing.T) {
	// GIVEN
	p := createPersistence(t)

	// WHEN
	mode, err := p.LoadGasMode(vehicleId)

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, configuration.GasModeUnset, mode)
}

func TestPersistence_SaveGasMode(t *testing.T) {
	// GIVEN
	p := createPersistence(t)

	// WHEN
	err := p.SaveGasMode(vehicleId, configuration.GasModeSport)
	assert.NoError(t, err)

	// THEN
	mode, err := p.LoadGasMode(vehicleId)
	assert.NoError(t, err)
	assert.Equal(t, configuration.GasModeSport, mode)

	other, err := p.LoadGasMode("other")
	assert.Error(t, err)
	assert.Equal(t, configuration.GasModeUnset, other)
}

func TestPersistence_DeleteGasMode(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	_ = p.SaveGasMode(vehicleId, configuration.GasModeEco)

	// WHEN
	err := p.DeleteGasMode(vehicleId)
	assert.NoError(t, err)

	// THEN
	_, err = p.LoadGasMode(vehicleId)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// deleting twice is fine
	assert.NoError(t, p.DeleteGasMode(vehicleId))
}

func TestPersistence_LoadGasMode_CorruptDataIsDeleted(t *testing.T) {
	// GIVEN
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	assert.NoError(t, err)
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketGasMode))
		if err != nil {
			return err
		}
		return b.Put([]byte(vehicleId), []byte("{not json"))
	})
	assert.NoError(t, err)
	assert.NoError(t, db.Close())
	p := NewPersistence(dbPath)

	// WHEN
	_, err = p.LoadGasMode(vehicleId)

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)

	db, err = bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	assert.NoError(t, err)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketGasMode))
		assert.NotNil(t, b)
		assert.Nil(t, b.Get([]byte(vehicleId)))
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, db.Close())

	// a new value can be stored in its place
	assert.NoError(t, p.SaveGasMode(vehicleId, configuration.GasModeDefault))
	mode, err := p.LoadGasMode(vehicleId)
	assert.NoError(t, err)
	assert.Equal(t, configuration.GasModeDefault, mode)
}

func TestPersistence_SessionStats(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	stats := SessionStats{
		Cycles:         1000,
		Engagements:    2,
		Stops:          1,
		PedalOverrides: 3,
		CycleOverruns:  4,
		Sessions:       1,
		UpdatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	// WHEN
	err := p.SaveSessionStats(vehicleId, stats)
	assert.NoError(t, err)

	// THEN
	loaded, err := p.LoadSessionStats(vehicleId)
	assert.NoError(t, err)
	assert.Equal(t, stats, loaded)
}

func TestPersistence_AppendSessionStats(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	first := SessionStats{Cycles: 100, Engagements: 1, Sessions: 1, UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	second := SessionStats{Cycles: 50, Stops: 2, Sessions: 1, UpdatedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}

	// WHEN
	_, err := p.AppendSessionStats(vehicleId, first)
	assert.NoError(t, err)
	total, err := p.AppendSessionStats(vehicleId, second)
	assert.NoError(t, err)

	// THEN
	assert.Equal(t, uint64(150), total.Cycles)
	assert.Equal(t, uint64(1), total.Engagements)
	assert.Equal(t, uint64(2), total.Stops)
	assert.Equal(t, uint64(2), total.Sessions)
	assert.Equal(t, second.UpdatedAt, total.UpdatedAt)

	loaded, err := p.LoadSessionStats(vehicleId)
	assert.NoError(t, err)
	assert.Equal(t, total, loaded)
}

func TestPersistence_DeleteSessionStats(t *testing.T) {
	// GIVEN
	p := createPersistence(t)
	_ = p.SaveSessionStats(vehicleId, SessionStats{Cycles: 1})

	// WHEN
	err := p.DeleteSessionStats(vehicleId)

	// THEN
	assert.NoError(t, err)
	_, err = p.LoadSessionStats(vehicleId)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
