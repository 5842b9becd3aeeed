package libraries

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	FolderPhotos     = "photos"
	FolderAudios     = "audios"
	FolderRecordings = "recordings"
)

// ObjectStorage stores user artifacts and hands out retrievable URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, folder string, userID uint, name, contentType string, data []byte) (string, error)
	URL(objectPath string) string
	Delete(ctx context.Context, objectPath string) error
}

// StoredObject is an uploaded artifact: its bucket path and public URL.
type StoredObject struct {
	Path string
	URL  string
}

type Clients struct {
	GCS             *storage.Client
	// CredentialsJSON is the decoded service account, reused by REST clients that authenticate through oauth2
	CredentialsJSON []byte
}

// DecodeCredentials decodes the base64 encoded service account JSON.
func DecodeCredentials(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("GCP_SERVICE_ACCOUNT_CREDENTIALS not set")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode service account json: %w", err)
	}
	return decoded, nil
}

func NewClients(ctx context.Context, encodedCredentials string) (*Clients, error) {
	decoded, err := DecodeCredentials(encodedCredentials)
	if err != nil {
		return nil, err
	}

	gcsClient, err := storage.NewClient(ctx, option.WithCredentialsJSON(decoded))
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &Clients{
		GCS:             gcsClient,
		CredentialsJSON: decoded,
	}, nil
}

func (c *Clients) Close() error {
	return c.GCS.Close()
}

// GCSStorage implements ObjectStorage on a single bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(client *storage.Client, bucket string) *GCSStorage {
	return &GCSStorage{client: client, bucket: bucket}
}

// ObjectPath builds "<folder>/<userID>/<uuid><ext>". The extension comes from
// the original file name, or from the content type when the name has none.
func ObjectPath(folder string, userID uint, name, contentType string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%d/%s%s", folder, userID, uuid.NewString(), ext)
}

func (s *GCSStorage) Upload(ctx context.Context, folder string, userID uint, name, contentType string, data []byte) (string, error) {
	objectPath := ObjectPath(folder, userID, name, contentType)

	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", objectPath, err)
	}
	return objectPath, nil
}

// Delete removes the object. A missing object is not an error.
func (s *GCSStorage) Delete(ctx context.Context, objectPath string) error {
	err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *GCSStorage) URL(objectPath string) string {
	return PublicURL(s.bucket, objectPath)
}

func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.TrimPrefix(objectPath, "/"))
}
