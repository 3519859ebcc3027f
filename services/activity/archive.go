package activity

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MinArchiveDays is the youngest age, in days, an entry may be archived or purged at.
const MinArchiveDays = 7

const archiveBatch = 1000

// ObjectStore is the blob storage archives are written to.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// S3Store keeps archives in one S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store loads the default AWS credential chain for region.
func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

type ArchiveRepository interface {
	store.ActivityStore
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// Archiver exports old entries to the object store and removes them from
// the database once the upload has succeeded.
type Archiver struct {
	repo    ArchiveRepository
	objects ObjectStore
	now     func() time.Time
	log     *logrus.Entry
}

// NewArchiver builds an archiver. objects may be nil when S3 is not
// configured; archiving then fails with a validation error.
func NewArchiver(repo ArchiveRepository, objects ObjectStore) *Archiver {
	return &Archiver{repo: repo, objects: objects, now: time.Now, log: logrus.WithField("component", "log_archive")}
}

// ArchivedLog is the row format written inside an archive.
type ArchivedLog struct {
	ID         uint                   `json:"id"`
	UserID     uint                   `json:"user_id"`
	Username   string                 `json:"username,omitempty"`
	UserRole   string                 `json:"user_role,omitempty"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID uint                   `json:"resource_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ip_address"`
	UserAgent  string                 `json:"user_agent"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Archive moves every entry older than days into one zip on the object
// store. It returns nil, nil when there is nothing to archive.
func (a *Archiver) Archive(ctx context.Context, days int) (*models.LogArchive, error) {
	if days < MinArchiveDays {
		return nil, apperrors.Validation("minimum archive age is %d days", MinArchiveDays)
	}
	if a.objects == nil {
		return nil, apperrors.Validation("archive storage is not configured")
	}
	cutoff := a.now().AddDate(0, 0, -days)

	rows, err := a.collect(ctx, cutoff)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read logs for archiving")
	}
	if len(rows) == 0 {
		a.log.Info("No logs to archive")
		return nil, nil
	}

	fileName := fmt.Sprintf("activity_logs_%s.zip", cutoff.Format("2006-01-02"))
	key := fmt.Sprintf("logs/archived/%d/%02d/%s", cutoff.Year(), cutoff.Month(), fileName)
	record := &models.LogArchive{
		FileName:    fileName,
		S3Key:       key,
		StartDate:   rows[0].CreatedAt,
		EndDate:     cutoff,
		RecordCount: len(rows),
		Status:      "pending",
	}

	buf, err := BuildZip(rows, fileName, a.now())
	if err != nil {
		return nil, apperrors.Internal(err, "failed to build archive")
	}
	record.FileSize = int64(buf.Len())

	if err := a.objects.Put(ctx, key, buf.Bytes(), "application/zip"); err != nil {
		record.Status = "failed"
		record.Error = err.Error()
		if cerr := a.repo.CreateLogArchive(ctx, record); cerr != nil {
			a.log.WithError(cerr).Error("Failed to record failed archive")
		}
		return nil, apperrors.Internal(err, "failed to upload archive")
	}

	deleted, err := a.repo.DeleteActivityLogsBefore(ctx, cutoff)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to delete archived logs")
	}
	record.Status = "completed"
	if err := a.repo.CreateLogArchive(ctx, record); err != nil {
		a.log.WithError(err).Error("Failed to save archive metadata")
	}
	a.log.WithFields(logrus.Fields{"key": key, "records": len(rows), "deleted": deleted}).Info("Activity logs archived")
	return record, nil
}

func (a *Archiver) collect(ctx context.Context, cutoff time.Time) ([]ArchivedLog, error) {
	users := map[uint]*models.User{}
	var out []ArchivedLog
	for offset := 0; ; offset += archiveBatch {
		logs, _, err := a.repo.ListActivityLogs(ctx, store.ActivityQuery{To: &cutoff, Limit: archiveBatch, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			row := ArchivedLog{
				ID:         l.ID,
				UserID:     l.UserID,
				Action:     l.Action,
				Resource:   l.Resource,
				ResourceID: l.ResourceID,
				IPAddress:  l.IPAddress,
				UserAgent:  l.UserAgent,
				CreatedAt:  l.CreatedAt,
			}
			if !l.Details.IsNull() {
				var details map[string]interface{}
				if json.Unmarshal(l.Details, &details) == nil {
					row.Details = details
				}
			}
			if l.UserID != 0 {
				u, seen := users[l.UserID]
				if !seen {
					u, _ = a.repo.GetUser(ctx, l.UserID)
					users[l.UserID] = u
				}
				if u != nil {
					row.Username = u.Username
					row.UserRole = u.Role
				}
			}
			out = append(out, row)
		}
		if len(logs) < archiveBatch {
			return out, nil
		}
	}
}

// BuildZip writes rows as activity_logs.json, activity_logs.csv and metadata.json.
func BuildZip(rows []ArchivedLog, fileName string, createdAt time.Time) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	f, err := zw.Create("activity_logs.json")
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"export_date":    createdAt.UTC(),
		"record_count":   len(rows),
		"format_version": "1.0",
		"logs":           rows,
	}); err != nil {
		return nil, err
	}

	f, err = zw.Create("activity_logs.csv")
	if err != nil {
		return nil, err
	}
	if err := writeCSV(f, rows); err != nil {
		return nil, err
	}

	f, err = zw.Create("metadata.json")
	if err != nil {
		return nil, err
	}
	meta := map[string]interface{}{
		"file_name":      fileName,
		"created_at":     createdAt.UTC(),
		"record_count":   len(rows),
		"schema_version": "1.0",
		"description":    "SchoolDesk activity log archive",
	}
	if len(rows) > 0 {
		meta["date_range"] = map[string]time.Time{"start": rows[0].CreatedAt, "end": rows[len(rows)-1].CreatedAt}
	}
	if err := json.NewEncoder(f).Encode(meta); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeCSV(w io.Writer, rows []ArchivedLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "User ID", "Username", "Role", "Action", "Resource", "Resource ID", "IP Address", "User Agent", "Created At", "Details"}); err != nil {
		return err
	}
	for _, r := range rows {
		details := ""
		if r.Details != nil {
			if b, err := json.Marshal(r.Details); err == nil {
				details = string(b)
			}
		}
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			strconv.FormatUint(uint64(r.UserID), 10),
			r.Username,
			r.UserRole,
			r.Action,
			r.Resource,
			strconv.FormatUint(uint64(r.ResourceID), 10),
			r.IPAddress,
			r.UserAgent,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (a *Archiver) List(ctx context.Context) ([]models.LogArchive, error) {
	rows, err := a.repo.ListLogArchives(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list archives")
	}
	return rows, nil
}

// Download opens a stored archive. The caller closes the reader.
func (a *Archiver) Download(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	rec, err := a.repo.GetLogArchive(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", apperrors.NotFound("Archive")
		}
		return nil, "", apperrors.Internal(err, "failed to load archive")
	}
	if rec.Status != "completed" {
		return nil, "", apperrors.Validation("archive %d is %s", id, rec.Status)
	}
	if a.objects == nil {
		return nil, "", apperrors.Validation("archive storage is not configured")
	}
	body, err := a.objects.Get(ctx, rec.S3Key)
	if err != nil {
		return nil, "", apperrors.Internal(err, "failed to download archive")
	}
	return body, rec.FileName, nil
}

// Export builds an archive of the entries matching q without removing them.
func (a *Archiver) Export(ctx context.Context, q store.ActivityQuery) (*bytes.Buffer, string, error) {
	q.Limit, q.Offset = 0, 0
	logs, _, err := a.repo.ListActivityLogs(ctx, q)
	if err != nil {
		return nil, "", apperrors.Internal(err, "failed to list activity logs")
	}
	rows := make([]ArchivedLog, 0, len(logs))
	for _, l := range logs {
		row := ArchivedLog{ID: l.ID, UserID: l.UserID, Action: l.Action, Resource: l.Resource, ResourceID: l.ResourceID,
			IPAddress: l.IPAddress, UserAgent: l.UserAgent, CreatedAt: l.CreatedAt}
		if !l.Details.IsNull() {
			_ = json.Unmarshal(l.Details, &row.Details)
		}
		rows = append(rows, row)
	}
	name := fmt.Sprintf("activity_logs_export_%s.zip", a.now().Format("20060102_150405"))
	buf, err := BuildZip(rows, name, a.now())
	if err != nil {
		return nil, "", apperrors.Internal(err, "failed to build export")
	}
	return buf, name, nil
}

// ArchiveDays is Archive for callers that only need the error.
func (a *Archiver) ArchiveDays(ctx context.Context, days int) error {
	_, err := a.Archive(ctx, days)
	return err
}
