package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/the80percentbill/pledge-api/src/api/types"
	"gorm.io/gorm"
)

var (
	// ErrShrinkGuard rejects a write when the backing table reads
	// implausibly small versus its last known-good size.
	ErrShrinkGuard = errors.New("store: shrink guard refused write")

	// ErrMonotonicity rejects a write whose result would hold fewer
	// rows than the table already has.
	ErrMonotonicity = errors.New("store: monotonicity guard refused write")
)

// BackupSink is the secondary persistence path, written before the
// primary so a signature survives a primary failure.
type BackupSink interface {
	Save(ctx context.Context, sig types.Signature) error
}

// MySQLBackup keeps a copy of every signature in a MySQL table.
type MySQLBackup struct {
	db *gorm.DB
}

func NewMySQLBackup(db *gorm.DB) *MySQLBackup {
	return &MySQLBackup{db: db}
}

func (b *MySQLBackup) Save(ctx context.Context, sig types.Signature) error {
	return b.db.WithContext(ctx).Create(&sig).Error
}

// Store is the append-only signature store. It layers integrity guards
// over a whole-table backend: reads current rows, refuses implausible
// shrinkage, appends, and re-checks the count before overwriting.
// Appends are serialized in-process; concurrent appends from separate
// processes remain a documented best-effort gap.
type Store struct {
	mu      sync.Mutex
	table   Table
	backup  BackupSink
	minRows int

	// lastKnown is the row count observed by the most recent successful
	// read, -1 until first observed.
	lastKnown int
}

func New(table Table, backup BackupSink, minRows int) *Store {
	return &Store{table: table, backup: backup, minRows: minRows, lastKnown: -1}
}

// Append persists one signature. The backup sink is written first,
// unconditionally; a primary failure after the backup has the row is
// reported as success with a diagnostic, not data loss. Append does not
// deduplicate: callers must have checked IsDuplicate already.
func (s *Store) Append(ctx context.Context, sig types.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var backupErr error
	if s.backup != nil {
		backupErr = s.backup.Save(ctx, sig)
		if backupErr != nil {
			log.Printf("store: backup sink failed for %s: %v", sig.Email, backupErr)
		}
	} else {
		backupErr = errors.New("no backup sink configured")
	}

	rows, err := s.table.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: read failed: %v", ErrShrinkGuard, err)
	}
	if err := s.checkShrink(len(rows)); err != nil {
		return err
	}

	updated := append(rows, sig.Row())
	if len(updated) < len(rows) {
		return ErrMonotonicity
	}

	if err := s.table.Overwrite(ctx, updated); err != nil {
		if backupErr == nil {
			// The backup already captured the row; surface a diagnostic
			// but do not fail the signature.
			log.Printf("store: primary write failed after backup succeeded: %v", err)
			return nil
		}
		return err
	}

	s.lastKnown = len(updated)
	return nil
}

func (s *Store) checkShrink(observed int) error {
	if s.lastKnown < 0 {
		return nil
	}
	if s.lastKnown > 0 && observed == 0 {
		return fmt.Errorf("%w: read 0 rows, expected %d", ErrShrinkGuard, s.lastKnown)
	}
	if s.lastKnown >= s.minRows && observed < s.minRows {
		return fmt.Errorf("%w: read %d rows, floor %d, expected %d", ErrShrinkGuard, observed, s.minRows, s.lastKnown)
	}
	return nil
}

// IsDuplicate reports whether a signature with the same normalized email
// already exists. A read failure resolves to false: sign-up attempts are
// not blocked by storage transients, at the cost of rare duplicate
// admission under failure.
func (s *Store) IsDuplicate(ctx context.Context, email string) bool {
	clean := types.NormalizeEmail(email)
	if clean == "" {
		return false
	}

	rows, err := s.table.ReadAll(ctx)
	if err != nil {
		log.Printf("store: duplicate check degraded to no-duplicate: %v", err)
		return false
	}
	for _, row := range rows {
		if len(row) <= colEmail {
			continue
		}
		if types.NormalizeEmail(row[colEmail]) == clean {
			return true
		}
	}
	return false
}

// RowCount returns the current number of signatures.
func (s *Store) RowCount(ctx context.Context) (int, error) {
	rows, err := s.table.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Districts returns the count of distinct districts among signatures.
func (s *Store) Districts(ctx context.Context) (int, error) {
	rows, err := s.table.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	for _, row := range rows {
		if len(row) > colDistrict {
			seen[row[colDistrict]] = struct{}{}
		}
	}
	return len(seen), nil
}

// Clear truncates the primary table. Administrative action only; the
// backup table is never cleared, so signatures that reached it survive.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.table.Overwrite(ctx, nil); err != nil {
		return err
	}
	s.lastKnown = 0
	return nil
}
