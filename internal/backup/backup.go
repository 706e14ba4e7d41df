package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/rota/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3 S3Config
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager produces encrypted schedule snapshots and uploads them to
// S3-compatible storage. The snapshot is taken with VACUUM INTO so the
// live WAL database stays consistent, then sealed with a passphrase
// from the settings store.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db            *sql.DB
	backupStore   *store.BackupStore
	settingsStore *store.SettingsStore
	client        s3Client
	logger        *slog.Logger
}

// NewManager creates a backup manager. The manager is disabled until
// both S3 credentials and a backup passphrase are configured.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, ss *store.SettingsStore, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:           cfg,
		db:            db,
		backupStore:   bs,
		settingsStore: ss,
		callback:      callback,
		logger:        logger,
		status:        Status{State: StateIdle},
	}

	if cfg.S3.Bucket == "" || cfg.S3.AccessKey == "" {
		m.status.State = StateDisabled
	} else {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	})
}

// Status returns a copy of the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(update func(*Status)) {
	m.mu.Lock()
	update(&m.status)
	s := m.status
	m.mu.Unlock()

	if m.callback != nil {
		m.callback(s)
	}
}

// Run performs one backup: snapshot, encrypt, upload, record.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.RLock()
	disabled := m.status.State == StateDisabled
	inProgress := m.status.InProgress
	m.mu.RUnlock()

	if disabled {
		return fmt.Errorf("backup is not configured")
	}
	if inProgress {
		return fmt.Errorf("backup already in progress")
	}

	settings, err := m.settingsStore.GetBackupSettings()
	if err != nil {
		return fmt.Errorf("load backup settings: %w", err)
	}
	passphrase := settings["backup_passphrase"]
	if passphrase == "" {
		return fmt.Errorf("backup passphrase is not set")
	}

	m.setStatus(func(s *Status) {
		s.State = StateRunning
		s.InProgress = true
		s.Error = ""
	})

	err = m.run(ctx, passphrase)

	if err != nil {
		m.logger.Error("backup failed", "error", err)
		m.setStatus(func(s *Status) {
			s.State = StateError
			s.InProgress = false
			s.Error = err.Error()
		})
		return err
	}

	now := time.Now().UTC()
	m.setStatus(func(s *Status) {
		s.State = StateIdle
		s.InProgress = false
		s.LastBackup = &now
	})
	return nil
}

func (m *Manager) run(ctx context.Context, passphrase string) error {
	snapshot, err := m.snapshot()
	if err != nil {
		return err
	}

	encrypted, err := Encrypt(snapshot, passphrase)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("rota/%s.db.enc", time.Now().UTC().Format("20060102T150405Z"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(encrypted),
	})
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}

	if _, err := m.backupStore.Create(key, int64(len(encrypted))); err != nil {
		return err
	}

	m.logger.Info("backup uploaded", "key", key, "size_bytes", len(encrypted))
	return nil
}

// snapshot writes a consistent copy of the database to a temp file via
// VACUUM INTO and returns its contents.
func (m *Manager) snapshot() ([]byte, error) {
	dir, err := os.MkdirTemp("", "rota-backup-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.Exec(`VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
