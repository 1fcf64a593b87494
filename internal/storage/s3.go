// Package storage uploads exported map snapshots to S3-compatible object
// storage and hands out presigned download links for them.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/orgloom/livemap/backend/internal/util"
)

const deleteBatchSize = 1000

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// SnapshotPrefix is where one tenant's map snapshots live.
func SnapshotPrefix(tenantID int64) string {
	return fmt.Sprintf("livemap/snapshots/%d/", tenantID)
}

// SnapshotKey returns a fresh object key for one exported snapshot.
func SnapshotKey(tenantID int64) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return SnapshotPrefix(tenantID) + id + ".json", nil
}

// PutJSON uploads v as a JSON document at key.
func PutJSON(ctx context.Context, client *s3.Client, key string, v any) error {
	bucket := util.GetEnv("AWS_BUCKET")
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func GenerateDownloadLink(ctx context.Context, baseClient *s3.Client, key string) (string, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	publicEndpoint := util.GetEnv("AWS_PUBLIC_ENDPOINT")

	publicURL, err := url.Parse(publicEndpoint)
	if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
		return "", fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", publicEndpoint)
	}
	prefix := strings.TrimSuffix(publicURL.Path, "/")

	// Build the base endpoint (scheme + host only, no path)
	publicBaseEndpoint := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)

	// Use the public endpoint for presigning - this ensures the signature matches
	// the Host header that the client will send when accessing the URL
	presignClientS3 := s3.NewFromConfig(
		aws.Config{
			Region:      baseClient.Options().Region,
			Credentials: baseClient.Options().Credentials,
			HTTPClient:  baseClient.Options().HTTPClient,
		},
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(publicBaseEndpoint)
			o.UsePathStyle = true
		},
	)

	presigner := s3.NewPresignClient(presignClientS3)

	out, err := presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}

	// If there's a path prefix in the public endpoint, prepend it to the presigned URL path
	if prefix != "" {
		signedURL, parseErr := url.Parse(out.URL)
		if parseErr != nil {
			return "", fmt.Errorf("failed to parse presigned url: %w", parseErr)
		}
		signedURL.Path = prefix + signedURL.Path
		return signedURL.String(), nil
	}

	return out.URL, nil
}

// PruneSnapshots deletes all but the keep newest snapshots of one tenant.
// It reports the number of objects removed.
func PruneSnapshots(ctx context.Context, client *s3.Client, tenantID int64, keep int) (int, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	prefix := SnapshotPrefix(tenantID)

	type object struct {
		key      string
		modified time.Time
	}
	var objects []object
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	for {
		listOutput, err := client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return 0, fmt.Errorf("failed to list snapshots under %s: %w", prefix, err)
		}
		for _, obj := range listOutput.Contents {
			if obj.Key == nil {
				continue
			}
			o := object{key: *obj.Key}
			if obj.LastModified != nil {
				o.modified = *obj.LastModified
			}
			objects = append(objects, o)
		}
		if listOutput.IsTruncated != nil && *listOutput.IsTruncated {
			listInput.ContinuationToken = listOutput.NextContinuationToken
		} else {
			break
		}
	}

	if keep < 0 {
		keep = 0
	}
	if len(objects) <= keep {
		return 0, nil
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].modified.After(objects[j].modified)
	})
	stale := objects[keep:]

	for start := 0; start < len(stale); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(stale))
		var toDelete []types.ObjectIdentifier
		for _, o := range stale[start:end] {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: aws.String(o.key)})
		}
		_, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: toDelete,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete stale snapshots under %s: %w", prefix, err)
		}
	}

	return len(stale), nil
}
