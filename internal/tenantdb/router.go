package tenantdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"brandhub-core/internal/config"
	"brandhub-core/internal/domain"
	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
)

var (
	// ErrNotFound: no registered partition for that schema name.
	ErrNotFound = errors.New("partition not found")
	// ErrPartitionUnavailable: the partition exists but cannot serve
	// queries right now (suspended, or its pool cannot be opened).
	ErrPartitionUnavailable = errors.New("partition unavailable")
)

const partitionCacheTTL = 5 * time.Minute

// PartitionConfig is the routing record cached in the KV store. The role
// secret stays encrypted here; it is decrypted only while building a pool.
type PartitionConfig struct {
	BrandID      string `json:"brand_id"`
	SchemaName   string `json:"schema_name"`
	DBRole       string `json:"db_role"`
	DBRoleSecret string `json:"db_role_secret"` // AES-GCM ciphertext
	Status       string `json:"status"`
}

// Handle is a partition-scoped database handle. Its pool logs in as the
// partition's restricted role with search_path pinned to the partition
// schema, so everything running through it is isolated by Postgres itself.
type Handle struct {
	db     *sql.DB
	schema string
	brand  string
}

func (h *Handle) DB() *sql.DB        { return h.db }
func (h *Handle) SchemaName() string { return h.schema }
func (h *Handle) BrandID() string    { return h.brand }

// Router resolves schema names to partition handles. Pools are built
// lazily on first use and cached until evicted.
type Router struct {
	base   config.DatabaseConfig
	pool   config.TenantPoolConfig
	brands repository.BrandsRepository
	kv     KVStore
	box    *secrets.Box
	logger *zap.Logger

	// open is swappable in tests; defaults to opening a real lib/pq pool.
	open func(dsn string) (*sql.DB, error)

	mu      sync.RWMutex
	handles map[string]*Handle // schemaName -> Handle
}

func NewRouter(
	base config.DatabaseConfig,
	pool config.TenantPoolConfig,
	brands repository.BrandsRepository,
	kv KVStore,
	box *secrets.Box,
	logger *zap.Logger,
) *Router {
	return &Router{
		base:    base,
		pool:    pool,
		brands:  brands,
		kv:      kv,
		box:     box,
		logger:  logger,
		open:    func(dsn string) (*sql.DB, error) { return sql.Open("postgres", dsn) },
		handles: map[string]*Handle{},
	}
}

// Resolve returns the handle for a partition, building its pool if needed.
func (r *Router) Resolve(ctx context.Context, schemaName string) (*Handle, error) {
	if !provision.ValidIdentifier(schemaName) {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	h, ok := r.handles[schemaName]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	cfg, err := r.loadConfig(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	if cfg.Status != domain.BrandStatusActive {
		return nil, fmt.Errorf("partition %s is %s: %w", schemaName, cfg.Status, ErrPartitionUnavailable)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have built the pool while we loaded config.
	if h, ok := r.handles[schemaName]; ok {
		return h, nil
	}

	h, err = r.buildHandle(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.handles[schemaName] = h
	r.logger.Info("Partition pool opened",
		zap.String("schema_name", schemaName),
		zap.String("brand_id", cfg.BrandID),
	)
	return h, nil
}

// Evict closes a partition's pool and drops its cached routing record.
// Called on destroy, suspension, and credential rotation.
func (r *Router) Evict(ctx context.Context, schemaName string) {
	r.mu.Lock()
	h, ok := r.handles[schemaName]
	delete(r.handles, schemaName)
	r.mu.Unlock()

	if ok {
		if err := h.db.Close(); err != nil {
			r.logger.Warn("Failed to close partition pool",
				zap.String("schema_name", schemaName), zap.Error(err))
		}
	}
	if err := r.kv.Del(ctx, partitionCacheKey(schemaName)); err != nil {
		r.logger.Warn("Failed to drop cached partition config",
			zap.String("schema_name", schemaName), zap.Error(err))
	}
}

// Close shuts down every open partition pool.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for schema, h := range r.handles {
		if err := h.db.Close(); err != nil {
			r.logger.Warn("Failed to close partition pool",
				zap.String("schema_name", schema), zap.Error(err))
		}
	}
	r.handles = map[string]*Handle{}
}

func (r *Router) loadConfig(ctx context.Context, schemaName string) (*PartitionConfig, error) {
	key := partitionCacheKey(schemaName)
	if raw, err := r.kv.Get(ctx, key); err == nil {
		var cfg PartitionConfig
		if jsonErr := json.Unmarshal([]byte(raw), &cfg); jsonErr == nil {
			return &cfg, nil
		}
		// Corrupt cache entry: fall through to the control plane.
		_ = r.kv.Del(ctx, key)
	}

	brand, err := r.brands.GetBrandBySchema(ctx, schemaName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load partition config: %w", err)
	}

	cfg := &PartitionConfig{
		BrandID:      brand.BrandID,
		SchemaName:   brand.SchemaName,
		DBRole:       brand.DBRole,
		DBRoleSecret: brand.DBRoleSecret,
		Status:       brand.Status,
	}
	if raw, err := json.Marshal(cfg); err == nil {
		if err := r.kv.Set(ctx, key, string(raw), partitionCacheTTL); err != nil {
			r.logger.Warn("Failed to cache partition config",
				zap.String("schema_name", schemaName), zap.Error(err))
		}
	}
	return cfg, nil
}

func (r *Router) buildHandle(ctx context.Context, cfg *PartitionConfig) (*Handle, error) {
	secret, err := r.box.Decrypt(cfg.DBRoleSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt partition role secret: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s options='-c search_path=%s'",
		r.base.Host, r.base.Port, cfg.DBRole, secret, r.base.Database, r.base.SSLMode, cfg.SchemaName)

	db, err := r.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartitionUnavailable, err)
	}
	db.SetMaxOpenConns(r.pool.MaxConns)
	db.SetMaxIdleConns(r.pool.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPartitionUnavailable, err)
	}

	return &Handle{db: db, schema: cfg.SchemaName, brand: cfg.BrandID}, nil
}

func partitionCacheKey(schemaName string) string {
	return "brandhub:partition:" + schemaName
}
