// Package collections reconciles the baseline snapshot and the object store
// copy of each content collection and performs all collection writes.
package collections

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

const defaultMigrationTimeout = 30 * time.Second

// Options configures a Store.
type Options struct {
	// Remote is the object store. Nil means local mode: the baseline is the
	// only source of truth.
	Remote   storage.ObjectStore
	Baseline storage.BaselineStore
	// KeyPrefix is prepended to the object key, e.g. "content".
	KeyPrefix string
	// AllowLocalWrites lets Save write the baseline in local mode. Without
	// it, writes in local mode fail with action.ErrNotConfigured.
	AllowLocalWrites bool
	MigrationTimeout time.Duration
	Clock            func() time.Time
	Logger           *zap.Logger
}

// Store is the reconciling repository of one collection.
type Store[C any] struct {
	name   string
	key    string
	schema Schema[C]

	remote           storage.ObjectStore
	baseline         storage.BaselineStore
	allowLocalWrites bool
	migrationTimeout time.Duration
	clock            func() time.Time
	logger           *zap.Logger

	// mu serializes writers of this collection: Update, Save and migrations.
	mu         sync.Mutex
	migrations singleflight.Group
	pending    sync.WaitGroup
}

// NewStore creates the repository for collection name.
func NewStore[C any](name string, schema Schema[C], opts Options) *Store[C] {
	s := &Store[C]{
		name:             name,
		key:              objectKey(opts.KeyPrefix, name),
		schema:           schema,
		remote:           opts.Remote,
		baseline:         opts.Baseline,
		allowLocalWrites: opts.AllowLocalWrites,
		migrationTimeout: opts.MigrationTimeout,
		clock:            opts.Clock,
		logger:           opts.Logger,
	}
	if s.migrationTimeout <= 0 {
		s.migrationTimeout = defaultMigrationTimeout
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("collection", name))
	return s
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name + ".json"
	}
	return prefix + "/" + name + ".json"
}

// Name returns the collection name.
func (s *Store[C]) Name() string { return s.name }

// Key returns the object store key of the collection document.
func (s *Store[C]) Key() string { return s.key }

// Remote reports whether an object store is configured.
func (s *Store[C]) Remote() bool { return s.remote != nil }

// Writable reports whether Save can succeed in the current mode.
func (s *Store[C]) Writable() bool { return s.remote != nil || s.allowLocalWrites }

// snapshot is the outcome of one reconciling read.
type snapshot[C any] struct {
	merged       C
	encoded      []byte
	mergedHash   uint64
	remote       remoteState
	schemaChange bool
}

// remoteState identifies the object store copy as it was read.
type remoteState struct {
	exists bool
	hash   uint64
}

// Load returns the merged collection. When the object store copy is stale
// a background migration write is started; its failure never affects the
// returned value.
func (s *Store[C]) Load(ctx context.Context) (C, error) {
	snap, err := s.read(ctx, false)
	if err != nil {
		var zero C
		return zero, err
	}
	if s.stale(snap) {
		s.migrate(snap)
	}
	return snap.merged, nil
}

// Save overwrites the whole collection.
func (s *Store[C]) Save(ctx context.Context, c C) error {
	if !s.Writable() {
		return action.ErrNotConfigured
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, c)
}

// Update runs a read-modify-write cycle under the collection's writer lock
// and returns the saved collection. fn must not retain its argument.
func (s *Store[C]) Update(ctx context.Context, fn func(C) (C, error)) (C, error) {
	var zero C
	if !s.Writable() {
		return zero, action.ErrNotConfigured
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(ctx, true)
	if err != nil {
		return zero, err
	}
	next, err := fn(snap.merged)
	if err != nil {
		return zero, err
	}
	if err := s.save(ctx, next); err != nil {
		return zero, err
	}
	return next, nil
}

// Wait blocks until background migrations have finished.
func (s *Store[C]) Wait() {
	s.pending.Wait()
}

func (s *Store[C]) save(ctx context.Context, c C) error {
	data, err := s.schema.Encode(c)
	if err != nil {
		return action.StorageWrite("encode "+s.name, err)
	}
	if s.remote != nil {
		if _, err := s.remote.Put(ctx, s.key, data, storage.PutOptions{ContentType: "application/json"}); err != nil {
			return action.StorageWrite("failed to save "+s.name, err)
		}
		return nil
	}
	if err := s.baseline.WriteCollection(ctx, s.name, data); err != nil {
		return action.StorageWrite("failed to save "+s.name, err)
	}
	return nil
}

// read performs one reconciling read. With forWrite set, an object store
// failure other than not-found aborts the read: the result would be saved
// over the authoritative copy.
func (s *Store[C]) read(ctx context.Context, forWrite bool) (snapshot[C], error) {
	var snap snapshot[C]
	now := s.clock()

	if s.remote == nil {
		raw := s.fetch(ctx, "baseline", s.fetchBaseline)
		base, err := s.decode(raw, "baseline")
		if err != nil {
			return snap, err
		}
		snap.merged, snap.schemaChange = s.schema.Migrate(base, now)
		return snap, nil
	}

	var remoteRaw, baseRaw []byte
	var g errgroup.Group
	g.Go(func() error {
		raw, err := s.fetchRemote(ctx)
		switch {
		case err == nil:
			remoteRaw = raw
		case errors.Is(err, storage.ErrNotFound):
		case forWrite:
			return action.StorageWrite("failed to read "+s.name+" before saving", err)
		default:
			s.logger.Warn("collection fetch failed, treating as empty", zap.String("source", "object store"), zap.Error(err))
		}
		return ctx.Err()
	})
	g.Go(func() error {
		baseRaw = s.fetch(ctx, "baseline", s.fetchBaseline)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return snap, err
	}

	remote, err := s.decode(remoteRaw, "object store")
	if err != nil {
		return snap, err
	}
	base, err := s.decode(baseRaw, "baseline")
	if err != nil {
		if remoteRaw == nil {
			return snap, err
		}
		s.logger.Warn("malformed baseline ignored", zap.Error(err))
		base = s.schema.Empty()
	}
	if remoteRaw != nil {
		canonical, err := s.schema.Encode(remote)
		if err != nil {
			return snap, action.Validation("encode " + s.name + ": " + err.Error())
		}
		snap.remote = remoteState{exists: true, hash: xxhash.Sum64(canonical)}
	}

	merged := s.schema.Merge(base, remote)
	snap.merged, snap.schemaChange = s.schema.Migrate(merged, now)
	snap.encoded, err = s.schema.Encode(snap.merged)
	if err != nil {
		return snap, action.Validation("encode " + s.name + ": " + err.Error())
	}
	snap.mergedHash = xxhash.Sum64(snap.encoded)
	return snap, nil
}

// fetch runs one store read. Not-found and failures both yield nil; failures
// are logged.
func (s *Store[C]) fetch(ctx context.Context, source string, fn func(context.Context) ([]byte, error)) []byte {
	data, err := fn(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("collection fetch failed, treating as empty", zap.String("source", source), zap.Error(err))
		}
		return nil
	}
	return data
}

func (s *Store[C]) fetchRemote(ctx context.Context) ([]byte, error) {
	objects, err := s.remote.List(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, storage.ErrNotFound
	}
	return s.remote.Get(ctx, objects[0].Key)
}

func (s *Store[C]) fetchBaseline(ctx context.Context) ([]byte, error) {
	if s.baseline == nil {
		return nil, storage.ErrNotFound
	}
	return s.baseline.ReadCollection(ctx, s.name)
}

func (s *Store[C]) decode(raw []byte, source string) (C, error) {
	if len(raw) == 0 {
		return s.schema.Empty(), nil
	}
	c, err := s.schema.Decode(raw)
	if err != nil {
		var zero C
		return zero, action.Validationf("%s copy of %s is malformed: %v", source, s.name, err)
	}
	return c, nil
}

// stale reports whether the object store copy differs from the merged
// result and should be rewritten.
func (s *Store[C]) stale(snap snapshot[C]) bool {
	if s.remote == nil || s.schema.Len(snap.merged) == 0 {
		return false
	}
	return !snap.remote.exists || snap.remote.hash != snap.mergedHash
}

// migrate writes snap back to the object store in the background.
// Concurrent readers that computed the same result share one write.
func (s *Store[C]) migrate(snap snapshot[C]) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		key := strconv.FormatUint(snap.mergedHash, 16)
		_, err, _ := s.migrations.Do(key, func() (any, error) {
			return nil, s.writeMigration(snap)
		})
		if err != nil {
			s.logger.Warn("collection migration failed", zap.Error(action.Migration(s.name, err)))
		}
	}()
}

func (s *Store[C]) writeMigration(snap snapshot[C]) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.migrationTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentRemote(ctx)
	if err != nil {
		return err
	}
	if current.exists && current.hash == snap.mergedHash {
		return nil
	}
	if current != snap.remote {
		s.logger.Info("collection migration skipped, object store changed since read")
		return nil
	}
	if _, err := s.remote.Put(ctx, s.key, snap.encoded, storage.PutOptions{ContentType: "application/json"}); err != nil {
		return err
	}
	s.logger.Info("collection migrated to object store",
		zap.Int("records", s.schema.Len(snap.merged)),
		zap.Bool("schema_change", snap.schemaChange))
	return nil
}

// currentRemote re-reads the object store copy for the optimistic check.
func (s *Store[C]) currentRemote(ctx context.Context) (remoteState, error) {
	raw, err := s.fetchRemote(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return remoteState{}, nil
	}
	if err != nil {
		return remoteState{}, err
	}
	c, err := s.decode(raw, "object store")
	if err != nil {
		return remoteState{}, err
	}
	canonical, err := s.schema.Encode(c)
	if err != nil {
		return remoteState{}, err
	}
	return remoteState{exists: true, hash: xxhash.Sum64(canonical)}, nil
}
