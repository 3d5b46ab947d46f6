package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/blob"
	"github.com/Raventwist88/ontrakk/internal/entries"
	"github.com/Raventwist88/ontrakk/internal/stats"
	"github.com/Raventwist88/ontrakk/internal/storage"
	"github.com/Raventwist88/ontrakk/internal/telemetry"
	"github.com/Raventwist88/ontrakk/internal/workouts"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrNotMirrored    = errors.New("backup has no signed mirror")
)

// PartialRestoreError is returned when the store failed after restore had
// already cleared the collections.
type PartialRestoreError struct {
	Written int
	Err     error
}

func (e *PartialRestoreError) Error() string {
	return fmt.Sprintf("restore interrupted after %d records: %v", e.Written, e.Err)
}

func (e *PartialRestoreError) Unwrap() error {
	return e.Err
}

// Invalidator is notified after a restore replaced the data.
type Invalidator interface {
	Invalidate()
}

// LocationSource supplies the zone used to deduplicate exported entries.
type LocationSource interface {
	Location(ctx context.Context) (*time.Location, error)
}

// RestoreResult counts the records written by a restore.
type RestoreResult struct {
	Entries  int `json:"entries"`
	Workouts int `json:"workouts"`
}

type Service struct {
	store       storage.Store
	blob        blob.Store
	instr       *telemetry.Instrumentation
	secret      []byte
	prefix      string
	invalidator Invalidator
	locations   LocationSource
	now         func() time.Time
}

// NewService wires the backup service. blobStore may be nil, in which
// case backups are kept in the document store only.
func NewService(store storage.Store, blobStore blob.Store, instr *telemetry.Instrumentation, signingSecret, prefix string) *Service {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "backups"
	}
	return &Service{
		store:  store,
		blob:   blobStore,
		instr:  instr,
		secret: []byte(signingSecret),
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

func (s *Service) WithLocations(src LocationSource) *Service {
	s.locations = src
	return s
}

// Create snapshots the current entries and workouts as a new backup.
func (s *Service) Create(ctx context.Context) (*Backup, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		s.instr.BackupOp("create", "error")
		return nil, err
	}

	now := s.now().UTC()
	b := &Backup{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Bundle:    snapshot,
	}
	b.Version = CurrentVersion
	b.Timestamp = now.Format(time.RFC3339)

	b.Mirror = s.mirror(ctx, b)
	if err := s.put(ctx, b); err != nil {
		s.instr.BackupOp("create", "error")
		return nil, err
	}
	s.instr.BackupOp("create", "ok")
	log.WithField("backup_id", b.ID).Infof("backup created: %d entries, %d workouts", len(b.DailyEntries), len(b.Workouts))
	return b, nil
}

// List returns backup summaries, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	records, err := s.store.GetAll(ctx, storage.Backups)
	if err != nil {
		return nil, storage.Unavailable("list backups", err)
	}

	backups := make([]Backup, 0, len(records))
	for _, rec := range records {
		var b Backup
		if err := json.Unmarshal(rec.Body, &b); err != nil {
			log.WithField("backup_id", rec.ID).Warnf("skip unreadable backup: %v", err)
			continue
		}
		if b.ID == "" {
			b.ID = rec.ID
		}
		backups = append(backups, b)
	}
	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].ID > backups[j].ID
	})

	result := make([]Summary, 0, len(backups))
	for _, b := range backups {
		result = append(result, b.Summary())
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Backup, error) {
	rec, err := s.store.Get(ctx, storage.Backups, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBackupNotFound
		}
		return nil, storage.Unavailable("get backup", err)
	}
	var b Backup
	if err := json.Unmarshal(rec.Body, &b); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", rec.ID, err)
	}
	if b.ID == "" {
		b.ID = rec.ID
	}
	return &b, nil
}

// Delete removes the backup and its mirrored objects.
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.Backups, b.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrBackupNotFound
		}
		return storage.Unavailable("delete backup", err)
	}
	if b.Mirror != nil && s.blob != nil {
		for _, key := range []string{b.Mirror.BundleKey, b.Mirror.ManifestKey} {
			if key == "" {
				continue
			}
			if err := s.blob.DeleteObject(ctx, key); err != nil && !errors.Is(err, blob.ErrObjectNotFound) {
				log.WithField("key", key).Warnf("delete backup object: %v", err)
			}
		}
	}
	s.instr.BackupOp("delete", "ok")
	return nil
}

// Import parses, migrates and validates data and stores it as a backup.
// Nothing is restored.
func (s *Service) Import(ctx context.Context, data []byte) (*Backup, error) {
	bundle, err := s.prepareImport(data)
	if err != nil {
		s.instr.BackupOp("import", "rejected")
		return nil, err
	}

	b := &Backup{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Bundle:    bundle,
	}
	b.IsImported = true
	if err := s.put(ctx, b); err != nil {
		s.instr.BackupOp("import", "error")
		return nil, err
	}
	s.instr.BackupOp("import", "ok")
	return b, nil
}

// Restore replaces entries and workouts with the content of backup id.
func (s *Service) Restore(ctx context.Context, id string) (RestoreResult, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return RestoreResult{}, err
	}
	return s.restore(ctx, b.Bundle)
}

// RestoreFromData imports data and restores it in one step.
func (s *Service) RestoreFromData(ctx context.Context, data []byte) (RestoreResult, error) {
	bundle, err := s.prepareImport(data)
	if err != nil {
		s.instr.BackupOp("restore", "rejected")
		return RestoreResult{}, err
	}
	bundle.IsImported = true
	return s.restore(ctx, bundle)
}

// Export returns the live data as a bundle, entries deduplicated by day.
func (s *Service) Export(ctx context.Context) (Bundle, error) {
	list, err := entries.LoadAll(ctx, s.store)
	if err != nil {
		return Bundle{}, err
	}
	loc := time.UTC
	if s.locations != nil {
		if loc, err = s.locations.Location(ctx); err != nil {
			return Bundle{}, err
		}
	}

	dedup := stats.DeduplicateByDay(list, loc)
	out := Bundle{
		Version:      CurrentVersion,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		DailyEntries: make([]Record, 0, len(dedup)),
	}
	for _, e := range dedup {
		rec, err := toRecord(e)
		if err != nil {
			return Bundle{}, err
		}
		out.DailyEntries = append(out.DailyEntries, rec)
	}
	if out.Workouts, err = s.loadRecords(ctx, storage.Workouts); err != nil {
		return Bundle{}, err
	}
	return out, nil
}

// VerifyMirror fetches the mirrored bundle and checks it against its
// signed manifest.
func (s *Service) VerifyMirror(ctx context.Context, id string) (Manifest, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Manifest{}, err
	}
	if s.blob == nil || b.Mirror == nil || b.Mirror.ManifestKey == "" {
		return Manifest{}, ErrNotMirrored
	}
	data, err := s.blob.GetObject(ctx, b.Mirror.BundleKey)
	if err != nil {
		return Manifest{}, fmt.Errorf("fetch mirrored bundle: %w", err)
	}
	token, err := s.blob.GetObject(ctx, b.Mirror.ManifestKey)
	if err != nil {
		return Manifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	m, err := VerifyManifest(s.secret, string(token), data)
	if err != nil {
		s.instr.BackupOp("verify", "failed")
		return m, err
	}
	s.instr.BackupOp("verify", "ok")
	return m, nil
}

func (s *Service) prepareImport(data []byte) (Bundle, error) {
	bundle, layout, err := ParseImport(data)
	if err != nil {
		return Bundle{}, err
	}
	if layout == LayoutLegacy && bundle.Timestamp == "" {
		bundle.Timestamp = s.now().UTC().Format(time.RFC3339)
	}
	return s.prepare(bundle)
}

// prepare migrates b to the current version and validates the result.
func (s *Service) prepare(b Bundle) (Bundle, error) {
	from := strings.TrimSpace(b.Version)
	migrated, err := Migrate(b)
	if err != nil {
		return Bundle{}, err
	}
	if from != migrated.Version {
		s.instr.Migration(from)
	}
	if problems := ValidateBundle(migrated); len(problems) > 0 {
		return Bundle{}, &ValidationError{Problems: problems}
	}
	return migrated, nil
}

func (s *Service) restore(ctx context.Context, b Bundle) (RestoreResult, error) {
	bundle, err := s.prepare(b)
	if err != nil {
		s.instr.BackupOp("restore", "rejected")
		return RestoreResult{}, err
	}
	entryRecords, workoutRecords, err := restoreRecords(bundle)
	if err != nil {
		s.instr.BackupOp("restore", "rejected")
		return RestoreResult{}, err
	}

	// From here on the store is modified.
	written := 0
	fail := func(err error) (RestoreResult, error) {
		s.instr.BackupOp("restore", "partial")
		s.invalidate()
		log.WithField("written", written).Errorf("restore interrupted: %v", err)
		return RestoreResult{}, &PartialRestoreError{Written: written, Err: err}
	}
	for _, c := range []storage.Collection{storage.DailyEntries, storage.LegacyDailyEntries, storage.Workouts} {
		if err := s.store.Clear(ctx, c); err != nil {
			return fail(storage.Unavailable("clear "+string(c), err))
		}
	}
	for _, rec := range entryRecords {
		if err := s.store.Put(ctx, storage.DailyEntries, rec); err != nil {
			return fail(storage.Unavailable("put entry", err))
		}
		written++
	}
	for _, rec := range workoutRecords {
		if err := s.store.Put(ctx, storage.Workouts, rec); err != nil {
			return fail(storage.Unavailable("put workout", err))
		}
		written++
	}

	s.invalidate()
	s.instr.BackupOp("restore", "ok")
	return RestoreResult{Entries: len(entryRecords), Workouts: len(workoutRecords)}, nil
}

// restoreRecords converts a validated bundle into storage records without
// touching the store.
func restoreRecords(b Bundle) ([]storage.Record, []storage.Record, error) {
	entryRecords := make([]storage.Record, 0, len(b.DailyEntries))
	for _, raw := range b.DailyEntries {
		entry := entries.NormalizeEntry(entries.RawEntry(raw))
		body, err := json.Marshal(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("encode entry %s: %w", entry.ID, err)
		}
		entryRecords = append(entryRecords, storage.Record{ID: entry.ID, Body: body})
	}

	var problems []string
	workoutRecords := make([]storage.Record, 0, len(b.Workouts))
	for i, raw := range b.Workouts {
		body, err := json.Marshal(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("encode workout %d: %w", i+1, err)
		}
		w, err := workouts.Decode(body)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Workout %d: %v", i+1, err))
			continue
		}
		rec, err := workouts.Encode(w)
		if err != nil {
			return nil, nil, err
		}
		workoutRecords = append(workoutRecords, rec)
	}
	if len(problems) > 0 {
		return nil, nil, &ValidationError{Problems: problems}
	}
	return entryRecords, workoutRecords, nil
}

func (s *Service) snapshot(ctx context.Context) (Bundle, error) {
	current, err := s.loadRecords(ctx, storage.DailyEntries)
	if err != nil {
		return Bundle{}, err
	}
	legacy, err := s.loadRecords(ctx, storage.LegacyDailyEntries)
	if err != nil {
		return Bundle{}, err
	}
	ws, err := s.loadRecords(ctx, storage.Workouts)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{DailyEntries: append(current, legacy...), Workouts: ws}, nil
}

// loadRecords decodes a collection into loose records. Bodies that are not
// JSON objects are skipped.
func (s *Service) loadRecords(ctx context.Context, c storage.Collection) ([]Record, error) {
	records, err := s.store.GetAll(ctx, c)
	if err != nil {
		return nil, storage.Unavailable("load "+string(c), err)
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		var r Record
		if err := json.Unmarshal(rec.Body, &r); err != nil || r == nil {
			log.WithField("collection", c).WithField("id", rec.ID).Warn("skip unreadable record")
			continue
		}
		if _, ok := r["id"]; !ok {
			r["id"] = rec.ID
		}
		out = append(out, r)
	}
	return out, nil
}

// mirror copies the bundle to object storage. Failures are logged and the
// backup is kept without a mirror.
func (s *Service) mirror(ctx context.Context, b *Backup) *Mirror {
	if s.blob == nil {
		return nil
	}
	data, err := json.Marshal(b.Bundle)
	if err != nil {
		log.WithField("backup_id", b.ID).Warnf("encode bundle for mirror: %v", err)
		return nil
	}

	m := &Mirror{
		BundleKey: path.Join(s.prefix, b.ID+".json"),
		Digest:    Digest(data),
	}
	if _, err := s.blob.PutObject(ctx, m.BundleKey, data, "application/json"); err != nil {
		s.instr.BackupOp("mirror", "error")
		log.WithField("backup_id", b.ID).Warnf("mirror bundle: %v", err)
		return nil
	}

	if len(s.secret) > 0 {
		token, err := SignManifest(s.secret, Manifest{
			BackupID:  b.ID,
			Version:   b.Version,
			Timestamp: b.Timestamp,
			Entries:   len(b.DailyEntries),
			Workouts:  len(b.Workouts),
			Digest:    m.Digest,
		}, s.now())
		if err == nil {
			key := path.Join(s.prefix, b.ID+".jwt")
			if _, err = s.blob.PutObject(ctx, key, []byte(token), "application/jwt"); err == nil {
				m.ManifestKey = key
			}
		}
		if err != nil {
			log.WithField("backup_id", b.ID).Warnf("mirror manifest: %v", err)
		}
	}
	s.instr.BackupOp("mirror", "ok")
	return m
}

func (s *Service) put(ctx context.Context, b *Backup) error {
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := s.store.Put(ctx, storage.Backups, storage.Record{ID: b.ID, Body: body}); err != nil {
		return storage.Unavailable("put backup", err)
	}
	return nil
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

func toRecord(v any) (Record, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return r, nil
}
