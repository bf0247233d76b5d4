// Package reliability keeps the ledger recoverable: off-site backups and
// routine database maintenance.
package reliability

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrBackupDisabled is returned when no upload target is configured.
var ErrBackupDisabled = errors.New("backups are disabled")

const backupTimeFormat = "2006-01-02-150405"

// Uploader is the subset of manager.Uploader used for backups.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config describes an S3-compatible bucket (AWS, R2, MinIO).
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Uploader builds a multipart uploader for cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*manager.Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client), nil
}

// BackupResult describes an uploaded snapshot.
type BackupResult struct {
	Key       string        `json:"key"`
	SizeBytes int64         `json:"size_bytes"`
	Duration  time.Duration `json:"duration_ns"`
}

// BackupService snapshots the ledger and uploads it gzipped.
type BackupService struct {
	db       *database.DB
	uploader Uploader
	bucket   string
	prefix   string
	stageDir string
	now      func() time.Time
	log      zerolog.Logger
}

// NewBackupService creates a backup service. uploader may be nil, in which case
// CreateAndUpload returns ErrBackupDisabled.
func NewBackupService(db *database.DB, uploader Uploader, bucket, prefix, stageDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:       db,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		stageDir: stageDir,
		now:      time.Now,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// Enabled reports whether an upload target is configured.
func (s *BackupService) Enabled() bool {
	return s != nil && s.uploader != nil
}

// ObjectKey returns the object key for a backup taken at t.
func (s *BackupService) ObjectKey(t time.Time) string {
	name := fmt.Sprintf("folio-ledger-%s.db.gz", t.UTC().Format(backupTimeFormat))
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// CreateAndUpload snapshots the ledger with VACUUM INTO, gzips it and uploads it.
func (s *BackupService) CreateAndUpload(ctx context.Context) (*BackupResult, error) {
	if !s.Enabled() {
		return nil, ErrBackupDisabled
	}

	start := s.now()
	s.log.Info().Msg("Starting ledger backup")

	if err := os.MkdirAll(s.stageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	stage, err := os.MkdirTemp(s.stageDir, "backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	snapshot := filepath.Join(stage, "ledger.db")
	if err := s.db.Snapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	archive := snapshot + ".gz"
	if err := gzipFile(snapshot, archive); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	key := s.ObjectKey(start)
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/gzip"),
	}); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	result := &BackupResult{Key: key, SizeBytes: info.Size(), Duration: s.now().Sub(start)}
	s.log.Info().
		Str("key", key).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("Ledger backup uploaded")
	return result, nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = gz.Close()
		_ = out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// BackupJob runs CreateAndUpload on a schedule.
type BackupJob struct {
	service *BackupService
	timeout time.Duration
}

// NewBackupJob creates a backup job.
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service, timeout: 10 * time.Minute}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, err := j.service.CreateAndUpload(ctx)
	return err
}
