package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/longctl/longctl/internal/configuration"
	"github.com/stretchr/testify/assert"
)

const testScenario = `
name: backend
frames:
  - cycles: 3
    active: true
    vEgo: 10
    vTarget: 12
    vTargetFuture: 12
`

func TestAcquireInstanceLock(t *testing.T) {
	// GIVEN
	dbPath := filepath.Join(t.TempDir(), "test.db")
	lock, err := AcquireInstanceLock(dbPath)
	assert.NoError(t, err)

	// WHEN
	_, err = AcquireInstanceLock(dbPath)

	// THEN
	assert.ErrorContains(t, err, "another instance is already running")

	assert.NoError(t, lock.Unlock())
	second, err := AcquireInstanceLock(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, second.Unlock())
}

func TestCreateSource(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(testScenario), 0644))
	config := configuration.Configuration{
		Rate:      100,
		Telemetry: configuration.TelemetryConfig{File: path},
	}

	// WHEN
	source, err := CreateSource(config)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "backend", source.Name())
	count := 0
	for {
		_, ok := source.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 3, count)
}

func TestCreateSource_Missing(t *testing.T) {
	// GIVEN
	config := configuration.Configuration{}

	// WHEN
	_, err := CreateSource(config)

	// THEN
	assert.EqualError(t, err, "no telemetry file configured")

	config.Telemetry.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = CreateSource(config)
	assert.Error(t, err)
}

func TestCreateSinks(t *testing.T) {
	// GIVEN
	config := configuration.ActuatorConfig{Log: true}

	// WHEN
	sinks, err := CreateSinks(context.Background(), config)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, sinks, 1)
	assert.Equal(t, "log", sinks[0].Name())
}

func TestCreateSinks_None(t *testing.T) {
	// WHEN
	sinks, err := CreateSinks(context.Background(), configuration.ActuatorConfig{})

	// THEN
	assert.NoError(t, err)
	assert.Empty(t, sinks)
}
