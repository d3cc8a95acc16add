package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/observability"
)

// Counter bucket names. These double as the keys inside the snapshot
// document, so renaming one invalidates existing snapshots.
const (
	bucketUsers         = "users"
	bucketComplaints    = "complaints"
	bucketAttachments   = "attachments"
	bucketReplies       = "replies"
	bucketCategories    = "categories"
	bucketAuditLogs     = "audit_logs"
	bucketReports       = "reports"
	bucketNotifications = "notifications"
)

var bucketNames = []string{
	bucketUsers,
	bucketComplaints,
	bucketAttachments,
	bucketReplies,
	bucketCategories,
	bucketAuditLogs,
	bucketReports,
	bucketNotifications,
}

// Options configures a Store instance.
type Options struct {
	SnapshotPath string
	UploadDir    string
	BcryptCost   int
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	// SkipSeed leaves a fresh store empty instead of populating defaults.
	// Used by tests that want full control over contents.
	SkipSeed bool
}

// Store holds every entity collection in memory and rewrites the full
// snapshot after each mutation. Identifier allocation and the snapshot write
// are serialized under one write lock; reads take the shared lock and return
// copies, never references into internal state.
type Store struct {
	mu sync.RWMutex

	path       string
	uploadDir  string
	bcryptCost int
	logger     *zap.Logger
	metrics    *observability.Metrics

	// Suppresses snapshot writes while the one-time default population runs
	// so boot performs a single write at the end.
	suppressPersist bool

	counters map[string]int64

	users         map[int64]domain.User
	complaints    map[int64]domain.Complaint
	attachments   map[int64]domain.Attachment
	replies       map[int64]domain.Reply
	categories    map[int64]domain.Category
	auditLogs     map[int64]domain.AuditLog
	reports       map[int64]domain.Report
	notifications map[int64]domain.Notification

	// Foreign-key indices maintained alongside the owning entities so
	// cascade deletes are lookups, not scans.
	repliesByComplaint     map[int64]map[int64]struct{}
	attachmentsByComplaint map[int64]map[int64]struct{}
	attachmentsByReply     map[int64]map[int64]struct{}
}

// Open constructs a Store, loading the prior snapshot when one exists or
// running the one-time default population otherwise.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:       opts.SnapshotPath,
		uploadDir:  opts.UploadDir,
		bcryptCost: opts.BcryptCost,
		logger:     logger,
		metrics:    opts.Metrics,
	}
	s.initEmpty()

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return nil, err
		}
	}

	if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
		if err := s.loadSnapshot(); err != nil {
			return nil, err
		}
		return s, nil
	}

	if !opts.SkipSeed {
		s.suppressPersist = true
		if err := s.seedDefaults(); err != nil {
			return nil, err
		}
		s.suppressPersist = false
	}
	s.mu.Lock()
	s.persistLocked()
	s.mu.Unlock()
	return s, nil
}

func (s *Store) initEmpty() {
	s.counters = make(map[string]int64, len(bucketNames))
	for _, name := range bucketNames {
		s.counters[name] = 0
	}
	s.users = make(map[int64]domain.User)
	s.complaints = make(map[int64]domain.Complaint)
	s.attachments = make(map[int64]domain.Attachment)
	s.replies = make(map[int64]domain.Reply)
	s.categories = make(map[int64]domain.Category)
	s.auditLogs = make(map[int64]domain.AuditLog)
	s.reports = make(map[int64]domain.Report)
	s.notifications = make(map[int64]domain.Notification)
	s.repliesByComplaint = make(map[int64]map[int64]struct{})
	s.attachmentsByComplaint = make(map[int64]map[int64]struct{})
	s.attachmentsByReply = make(map[int64]map[int64]struct{})
}

// nextIDLocked allocates the next monotonically increasing identifier for a
// bucket. Callers must hold the write lock.
func (s *Store) nextIDLocked(bucket string) int64 {
	s.counters[bucket]++
	return s.counters[bucket]
}

func indexAdd(index map[int64]map[int64]struct{}, owner, member int64) {
	set, ok := index[owner]
	if !ok {
		set = make(map[int64]struct{})
		index[owner] = set
	}
	set[member] = struct{}{}
}

func indexRemove(index map[int64]map[int64]struct{}, owner, member int64) {
	if set, ok := index[owner]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(index, owner)
		}
	}
}

func now() time.Time {
	return time.Now().UTC()
}
