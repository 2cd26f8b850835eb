package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name       string
	dependsOn  []string
	failStarts int
	startCalls int
	started    *[]string
	stopped    *[]string
}

func (d *fakeDependency) GetName() string { return d.name }

func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Stop(ctx context.Context) error {
	if d.stopped != nil {
		*d.stopped = append(*d.stopped, d.name)
	}
	return nil
}

func (d *fakeDependency) Start(ctx context.Context) error {
	d.startCalls++
	if d.startCalls <= d.failStarts {
		return errors.New("not ready")
	}
	if d.started != nil {
		*d.started = append(*d.started, d.name)
	}
	return nil
}

func quietLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartHonorsDependsOn(t *testing.T) {
	var started []string

	s := NewStartup(quietLogger(), 1)
	s.AddDependency(&fakeDependency{name: "api", dependsOn: []string{"database", "cache"}, started: &started})
	s.AddDependency(&fakeDependency{name: "database", started: &started})
	s.AddDependency(&fakeDependency{name: "cache", started: &started})

	err := s.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"database", "cache", "api"}, started)
}

func TestStartSharedDependencyStartsOnce(t *testing.T) {
	var started []string

	db := &fakeDependency{name: "database", started: &started}

	s := NewStartup(quietLogger(), 1)
	s.AddDependency(&fakeDependency{name: "scanner", dependsOn: []string{"database"}, started: &started})
	s.AddDependency(&fakeDependency{name: "api", dependsOn: []string{"database"}, started: &started})
	s.AddDependency(db)

	err := s.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, db.startCalls)
	assert.Equal(t, []string{"database", "scanner", "api"}, started)
}

func TestStartRetriesFailedDependency(t *testing.T) {
	var started []string

	db := &fakeDependency{name: "database", failStarts: 1, started: &started}
	api := &fakeDependency{name: "api", dependsOn: []string{"database"}, started: &started}

	s := NewStartup(quietLogger(), 3)
	s.AddDependency(db)
	s.AddDependency(api)

	err := s.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, db.startCalls)
	assert.Equal(t, 1, api.startCalls)
	assert.Equal(t, []string{"database", "api"}, started)
}

func TestStartGivesUpAfterMaxAttempts(t *testing.T) {
	s := NewStartup(quietLogger(), 2)
	s.AddDependency(&fakeDependency{name: "database", failStarts: 10})

	err := s.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
}

func TestStopReversesRegistrationOrder(t *testing.T) {
	var stopped []string

	s := NewStartup(quietLogger(), 1)
	s.AddDependency(&fakeDependency{name: "database", stopped: &stopped})
	s.AddDependency(&fakeDependency{name: "cache", stopped: &stopped})
	s.AddDependency(&fakeDependency{name: "api", stopped: &stopped})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, []string{"api", "cache", "database"}, stopped)
}
