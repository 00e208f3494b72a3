package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/longctl/longctl/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketGasMode      = "gasMode"
	BucketSessionStats = "sessionStats"
)

// SessionStats counts control events, either of a single session or accumulated over many
type SessionStats struct {
	Cycles         uint64 `json:"cycles"`
	Engagements    uint64 `json:"engagements"`
	Stops          uint64 `json:"stops"`
	PedalOverrides uint64 `json:"pedalOverrides"`
	CycleOverruns  uint64 `json:"cycleOverruns"`
	// Number of sessions merged into these stats
	Sessions  uint64    `json:"sessions"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Add returns the sum of both stats
func (s SessionStats) Add(other SessionStats) SessionStats {
	updatedAt := s.UpdatedAt
	if other.UpdatedAt.After(updatedAt) {
		updatedAt = other.UpdatedAt
	}
	return SessionStats{
		Cycles:         s.Cycles + other.Cycles,
		Engagements:    s.Engagements + other.Engagements,
		Stops:          s.Stops + other.Stops,
		PedalOverrides: s.PedalOverrides + other.PedalOverrides,
		CycleOverruns:  s.CycleOverruns + other.CycleOverruns,
		Sessions:       s.Sessions + other.Sessions,
		UpdatedAt:      updatedAt,
	}
}

type Persistence interface {
	Init() error

	LoadGasMode(vehicleId string) (configuration.GasMode, error)
	SaveGasMode(vehicleId string, mode configuration.GasMode) (err error)
	DeleteGasMode(vehicleId string) (err error)

	LoadSessionStats(vehicleId string) (SessionStats, error)
	SaveSessionStats(vehicleId string, stats SessionStats) (err error)
	// AppendSessionStats adds the given stats to the stored totals and returns the new totals
	AppendSessionStats(vehicleId string, stats SessionStats) (SessionStats, error)
	DeleteSessionStats(vehicleId string) (err error)
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// LoadGasMode loads the last gas mode selected by the driver of the given vehicle
func (p persistence) LoadGasMode(vehicleId string) (configuration.GasMode, error) {
	mode := configuration.GasModeUnset
	err := p.load(BucketGasMode, vehicleId, &mode)
	if err != nil {
		return configuration.GasModeUnset, err
	}
	return mode, nil
}

// SaveGasMode stores the gas mode selected by the driver of the given vehicle
func (p persistence) SaveGasMode(vehicleId string, mode configuration.GasMode) error {
	return p.save(BucketGasMode, vehicleId, mode)
}

func (p persistence) DeleteGasMode(vehicleId string) error {
	return p.delete(BucketGasMode, vehicleId)
}

// LoadSessionStats loads the accumulated session statistics of the given vehicle
func (p persistence) LoadSessionStats(vehicleId string) (SessionStats, error) {
	var stats SessionStats
	err := p.load(BucketSessionStats, vehicleId, &stats)
	return stats, err
}

func (p persistence) SaveSessionStats(vehicleId string, stats SessionStats) error {
	return p.save(BucketSessionStats, vehicleId, stats)
}

func (p persistence) AppendSessionStats(vehicleId string, stats SessionStats) (SessionStats, error) {
	db, err := p.openPersistence()
	if err != nil {
		return SessionStats{}, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	key := []byte(vehicleId)

	var total SessionStats
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketSessionStats))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}

		var stored SessionStats
		if v := b.Get(key); v != nil {
			err = json.Unmarshal(v, &stored)
			if err != nil {
				ui.Warning("Unable to unmarshal saved session stats for %s, starting over: %v", vehicleId, err)
				stored = SessionStats{}
			}
		}

		total = stored.Add(stats)
		data, err := json.Marshal(total)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err != nil {
		return SessionStats{}, err
	}
	return total, nil
}

func (p persistence) DeleteSessionStats(vehicleId string) error {
	return p.delete(BucketSessionStats, vehicleId)
}

func (p persistence) save(bucket string, key string, value interface{}) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return b.Put([]byte(key), data)
	})
}

// load unmarshals the value stored for the given key into target,
// os.ErrNotExist is returned if there is no such value
func (p persistence) load(bucket string, key string, target interface{}) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	corrupt := false
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(key))
		if v == nil {
			return os.ErrNotExist
		}

		err := json.Unmarshal(v, target)
		if err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved %s data for %s: %v", bucket, key, err)
			corrupt = true
			err := b.Delete([]byte(key))
			if err != nil {
				ui.Error("Unable to delete corrupt data key %s: %v", key, err)
			}
			// returning an error would roll back the delete
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}
	if corrupt {
		return os.ErrNotExist
	}
	return nil
}

func (p persistence) delete(bucket string, key string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			// no bucket yet
			return nil
		}
		if b.Get([]byte(key)) == nil {
			// no data for given key
			return nil
		}
		return b.Delete([]byte(key))
	})
}
