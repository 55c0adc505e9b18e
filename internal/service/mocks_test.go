package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
)

// memoryPartitions implements PartitionAccess over per-schema memory
// repositories, standing in for the router + Postgres pair.
type memoryPartitions struct {
	mu      sync.Mutex
	users   map[string]*repository.MemoryBrandUsersRepository
	outlets map[string]*repository.MemoryOutletsRepository
	fail    map[string]error // schemaName -> forced resolve error
}

func newMemoryPartitions() *memoryPartitions {
	return &memoryPartitions{
		users:   map[string]*repository.MemoryBrandUsersRepository{},
		outlets: map[string]*repository.MemoryOutletsRepository{},
		fail:    map[string]error{},
	}
}

func (m *memoryPartitions) Users(_ context.Context, schemaName string) (repository.BrandUsersRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolveErr(schemaName); err != nil {
		return nil, err
	}
	if m.users[schemaName] == nil {
		m.users[schemaName] = repository.NewMemoryBrandUsersRepository()
	}
	return m.users[schemaName], nil
}

func (m *memoryPartitions) Outlets(_ context.Context, schemaName string) (repository.OutletsRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.resolveErr(schemaName); err != nil {
		return nil, err
	}
	if m.outlets[schemaName] == nil {
		m.outlets[schemaName] = repository.NewMemoryOutletsRepository()
	}
	return m.outlets[schemaName], nil
}

// resolveErr honors a per-schema forced error, or "*" for all schemas.
// Callers hold m.mu.
func (m *memoryPartitions) resolveErr(schemaName string) error {
	if err := m.fail[schemaName]; err != nil {
		return err
	}
	return m.fail["*"]
}

func (m *memoryPartitions) setFailure(schemaName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, schemaName)
	} else {
		m.fail[schemaName] = err
	}
}

// fakePartitioner records provision/destroy calls.
type fakePartitioner struct {
	mu           sync.Mutex
	provisioned  []provision.Plan
	destroyed    []string // schema names
	provisionErr error
}

func (f *fakePartitioner) Provision(_ context.Context, plan provision.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provisionErr != nil {
		return f.provisionErr
	}
	f.provisioned = append(f.provisioned, plan)
	return nil
}

func (f *fakePartitioner) Destroy(_ context.Context, schemaName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, schemaName)
	return nil
}

// fakeEvictor records evictions.
type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (f *fakeEvictor) Evict(_ context.Context, schemaName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, schemaName)
}

func newTestBox(t *testing.T) *secrets.Box {
	t.Helper()
	key, err := secrets.GenerateMasterKey()
	require.NoError(t, err)
	box, err := secrets.NewBox(key)
	require.NoError(t, err)
	return box
}

func testLogger() *zap.Logger { return zap.NewNop() }
