// Package storage archives acquired transcripts to an S3-compatible bucket.
// Archiving is strictly best-effort: the orchestrator never fails an
// acquisition over it.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tubebrief/models"
)

type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

type ArchiveClient struct {
	client *s3.Client
	bucket string
}

func NewArchiveClient(cfg ArchiveConfig) (*ArchiveClient, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.Endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	return &ArchiveClient{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

type archivedTranscript struct {
	VideoID   string                `json:"video_id"`
	Text      string                `json:"text"`
	Source    string                `json:"source"`
	Metadata  *models.VideoMetadata `json:"metadata,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// SaveTranscript writes the transcript JSON under transcripts/<video_id>.json.
func (a *ArchiveClient) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	data := archivedTranscript{
		VideoID:   t.VideoID,
		Text:      t.Text,
		Source:    t.Source,
		Metadata:  t.Metadata,
		Timestamp: time.Now(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %v", err)
	}

	key := fmt.Sprintf("transcripts/%s.json", t.VideoID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(jsonData),
	})
	if err != nil {
		return fmt.Errorf("failed to archive transcript: %v", err)
	}

	return nil
}
