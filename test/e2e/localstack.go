package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3store "github.com/marmos91/dittodav/pkg/store/s3"
)

const defaultLocalstackEndpoint = "http://localhost:4566"

// LocalstackHelper owns the buckets an S3 run creates on Localstack
type LocalstackHelper struct {
	T        *testing.T
	Endpoint string
	Client   *s3.Client
	Buckets  []string
}

// localstackEndpoint returns LOCALSTACK_ENDPOINT or the default port
func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return defaultLocalstackEndpoint
}

// newLocalstackClient builds the SDK client the same way the S3 store does,
// with a single attempt so an absent Localstack fails fast
func newLocalstackClient(ctx context.Context, endpoint string) (*s3.Client, error) {
	return s3store.NewS3Client(ctx, s3store.S3StoreConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		MaxRetries:      1,
	})
}

// NewLocalstackHelper connects to Localstack
func NewLocalstackHelper(t *testing.T) *LocalstackHelper {
	t.Helper()

	endpoint := localstackEndpoint()
	client, err := newLocalstackClient(context.Background(), endpoint)
	if err != nil {
		t.Fatalf("Failed to create S3 client: %v", err)
	}

	return &LocalstackHelper{T: t, Endpoint: endpoint, Client: client}
}

// CreateBucket creates bucketName and registers it for Cleanup
func (lh *LocalstackHelper) CreateBucket(ctx context.Context, bucketName string) error {
	lh.T.Helper()

	if _, err := lh.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}
	lh.Buckets = append(lh.Buckets, bucketName)
	return nil
}

// Cleanup empties and deletes every registered bucket
func (lh *LocalstackHelper) Cleanup() {
	lh.T.Helper()

	ctx := context.Background()
	for _, bucket := range lh.Buckets {
		if err := lh.emptyBucket(ctx, bucket); err != nil {
			lh.T.Logf("Failed to empty bucket %s: %v", bucket, err)
		}
		if _, err := lh.Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
			lh.T.Logf("Failed to delete bucket %s: %v", bucket, err)
		}
	}
	lh.Buckets = nil
}

func (lh *LocalstackHelper) emptyBucket(ctx context.Context, bucket string) error {
	paginator := s3.NewListObjectsV2Paginator(lh.Client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			if _, err := lh.Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key}); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetupS3Config gives config a fresh bucket on the helper's Localstack
func SetupS3Config(t *testing.T, config *TestConfig, helper *LocalstackHelper) {
	t.Helper()

	bucket := fmt.Sprintf("dittodav-e2e-%s-%d", config.Name, time.Now().UnixNano())
	if err := helper.CreateBucket(context.Background(), bucket); err != nil {
		t.Fatalf("Failed to create S3 bucket: %v", err)
	}

	config.s3Endpoint = helper.Endpoint
	config.s3Bucket = bucket
}

// CheckLocalstackAvailable reports whether ListBuckets succeeds within a
// few seconds
func CheckLocalstackAvailable(t *testing.T) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := newLocalstackClient(ctx, localstackEndpoint())
	if err != nil {
		return false
	}
	_, err = client.ListBuckets(ctx, &s3.ListBucketsInput{})
	return err == nil
}
