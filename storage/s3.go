// Package storage uploads student photos to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MaxPhotoSize is the largest accepted upload, in bytes.
const MaxPhotoSize = 5 << 20

var ErrUnsupportedType = errors.New("unsupported file type")

type StorageService struct {
	s3Client *s3.S3
	bucket   string
	region   string
	now      func() time.Time
}

// NewStorageService creates a client from the default AWS credential chain.
func NewStorageService(region, bucket string) (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}
	return &StorageService{s3Client: s3.New(sess), bucket: bucket, region: region, now: time.Now}, nil
}

// ObjectKey is folder/owner/yyyy/mm/dd/random.ext.
func ObjectKey(folder string, ownerID uint, ext string, at time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%02d/%02d/%s.%s",
		folder, ownerID, at.Year(), at.Month(), at.Day(), uuid.New().String()[:16], ext)
}

// UploadPhoto stores an image for ownerID and returns its public URL.
func (s *StorageService) UploadPhoto(ctx context.Context, folder string, ownerID uint, filename string, content []byte) (string, error) {
	ext := FileExtension(filename)
	contentType, ok := ImageContentType(ext)
	if !ok {
		return "", ErrUnsupportedType
	}
	if len(content) > MaxPhotoSize {
		return "", errors.Errorf("file larger than %d bytes", MaxPhotoSize)
	}
	key := ObjectKey(folder, ownerID, ext, s.now())
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// DeleteFile removes an object previously returned by UploadPhoto.
func (s *StorageService) DeleteFile(ctx context.Context, fileURL string) error {
	key := KeyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("invalid file URL")
	}
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// FileExtension is the lower-cased extension without the dot.
func FileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

func ImageContentType(ext string) (string, bool) {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg", true
	case "png":
		return "image/png", true
	case "webp":
		return "image/webp", true
	case "gif":
		return "image/gif", true
	}
	return "", false
}

// KeyFromURL extracts the S3 key from https://bucket.s3.region.amazonaws.com/key.
func KeyFromURL(url string) string {
	parts := strings.Split(url, ".amazonaws.com/")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
