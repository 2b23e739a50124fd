//go:build integration
// +build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittodav/pkg/store"
	storetesting "github.com/marmos91/dittodav/pkg/store/testing"
	"github.com/stretchr/testify/require"
)

// TestS3Store_Integration runs the store contract suite against a real
// S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/store/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg := S3StoreConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		MaxRetries:      3,
	}

	client, err := NewS3Client(ctx, cfg)
	require.NoError(t, err)

	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			bucket := fmt.Sprintf("dittodav-test-%d", time.Now().UnixNano())
			_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
			require.NoError(t, err)
			t.Cleanup(func() { emptyBucket(ctx, client, bucket) })

			cfg := cfg
			cfg.Bucket = bucket
			s, err := NewS3Store(ctx, cfg)
			require.NoError(t, err)
			return s
		},
		SkipAppend: true,
	}
	suite.Run(t)
}

func emptyBucket(ctx context.Context, client *s3.Client, bucket string) {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			break
		}
		for _, obj := range page.Contents {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
		}
	}
	_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
}
