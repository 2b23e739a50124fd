//go:build integration

package s3_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittodav/pkg/config"
	"github.com/marmos91/dittodav/pkg/store"
	s3store "github.com/marmos91/dittodav/pkg/store/s3"
	storetesting "github.com/marmos91/dittodav/pkg/store/testing"
)

// setupTestBucket creates a bucket on Localstack and returns its name
// together with a cleanup function that empties and deletes it.
//
// Parameters:
//   - t: The testing instance
//
// Returns:
//   - string: Bucket name
//   - string: Endpoint URL
//   - cleanup: Function to delete all objects and the bucket
func setupTestBucket(t *testing.T) (string, string, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := s3store.NewS3Client(ctx, s3store.S3StoreConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
	})
	if err != nil {
		t.Fatalf("Failed to create S3 client: %v", err)
	}

	bucket := fmt.Sprintf("dittodav-integration-%d", time.Now().UnixNano())
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	cleanup := func() {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				t.Logf("Failed to list objects: %v", err)
				break
			}
			for _, obj := range page.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		if _, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
			t.Logf("Failed to delete bucket %s: %v", bucket, err)
		}
	}

	return bucket, endpoint, cleanup
}

// storeOptions is the s3 section of a configuration file as viper would
// decode it.
func storeOptions(endpoint, bucket, prefix string) map[string]any {
	return map[string]any{
		"endpoint":          endpoint,
		"region":            "us-east-1",
		"bucket":            bucket,
		"access_key_id":     "test",
		"secret_access_key": "test",
		"key_prefix":        prefix,
		"force_path_style":  true,
		"part_size":         "5242880",
		"max_retries":       3,
	}
}

// TestS3Store_Integration runs the store contract suite against a store
// built from configuration options.
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./test/integration/s3/...
func TestS3Store_Integration(t *testing.T) {
	bucket, endpoint, cleanup := setupTestBucket(t)
	defer cleanup()

	var n int
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			n++
			st, err := config.CreateStore(context.Background(), &config.StoreConfig{
				Type: "s3",
				S3:   storeOptions(endpoint, bucket, fmt.Sprintf("suite-%d/", n)),
			})
			if err != nil {
				t.Fatalf("Failed to create S3 store: %v", err)
			}
			return st
		},
		SkipAppend: true,
	}
	suite.Run(t)
}

// TestS3Store_KeyPrefixIsolation checks that two stores sharing a bucket
// under different key prefixes do not see each other's items.
func TestS3Store_KeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	bucket, endpoint, cleanup := setupTestBucket(t)
	defer cleanup()

	open := func(prefix string) store.Store {
		st, err := config.CreateStore(ctx, &config.StoreConfig{
			Type: "s3",
			S3:   storeOptions(endpoint, bucket, prefix),
		})
		if err != nil {
			t.Fatalf("Failed to create S3 store %q: %v", prefix, err)
		}
		return st
	}

	left := open("left/")
	defer left.Close()
	right := open("right/")
	defer right.Close()

	leftRoot, err := left.Root(ctx)
	if err != nil {
		t.Fatalf("Failed to get left root: %v", err)
	}
	doc, err := leftRoot.CreateDocument(ctx, "only-left.txt")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	storetesting.WriteDocument(t, ctx, doc, []byte("left"), false)

	rightRoot, err := right.Root(ctx)
	if err != nil {
		t.Fatalf("Failed to get right root: %v", err)
	}
	children, err := rightRoot.Children(ctx)
	if err != nil {
		t.Fatalf("Failed to list right root: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("Right store sees foreign items: %v", storetesting.Names(children))
	}

	// A store reopened on the same prefix sees the earlier write
	again := open("left/")
	defer again.Close()

	againRoot, err := again.Root(ctx)
	if err != nil {
		t.Fatalf("Failed to get reopened root: %v", err)
	}
	reopened := storetesting.LookupDocument(t, ctx, againRoot, "only-left.txt")
	if got := storetesting.ReadDocument(t, ctx, reopened); string(got) != "left" {
		t.Errorf("Unexpected content after reopen: %q", got)
	}
}
