package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/coreauth/idp/internal/models"
)

// S3Clients is an alternate Clients backend for deployments that keep
// their administratively-provisioned records in object storage rather
// than a flat file — the same access pattern the teacher used S3 for
// with users: infrequent writes, read-mostly lookups by key.
type S3Clients struct {
	client *minio.Client
	bucket string
}

func NewS3Clients(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*S3Clients, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &S3Clients{
		client: client,
		bucket: bucket,
	}, nil
}

// clientBlob is the on-disk/on-bucket shape: models.Client itself
// never marshals its secret hash.
type clientBlob struct {
	ClientID            string    `json:"clientId"`
	ClientSecretHash    []byte    `json:"clientSecretHash"`
	Name                string    `json:"name"`
	AllowedRedirectURIs []string  `json:"allowedRedirectUris"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (s *S3Clients) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	key := fmt.Sprintf("clients/%s.json", clientID)

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get client from S3: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read client data: %w", err)
	}

	var blob clientBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}

	return &models.Client{
		ClientID:            blob.ClientID,
		ClientSecretHash:    blob.ClientSecretHash,
		Name:                blob.Name,
		AllowedRedirectURIs: blob.AllowedRedirectURIs,
		CreatedAt:           blob.CreatedAt,
	}, nil
}

// PutClient provisions or updates a client record. There is no HTTP
// route for this — clients are provisioned administratively, not by
// end users.
func (s *S3Clients) PutClient(ctx context.Context, c *models.Client) error {
	key := fmt.Sprintf("clients/%s.json", c.ClientID)

	blob := clientBlob{
		ClientID:            c.ClientID,
		ClientSecretHash:    c.ClientSecretHash,
		Name:                c.Name,
		AllowedRedirectURIs: c.AllowedRedirectURIs,
		CreatedAt:           c.CreatedAt,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to save client to S3: %w", err)
	}
	return nil
}
