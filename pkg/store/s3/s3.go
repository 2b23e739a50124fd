// Package s3 implements a store.Store on Amazon S3 or an S3-compatible
// service.
//
// Key Design:
//   - A document at "/docs/a.txt" is the object "<prefix>docs/a.txt"
//   - A collection at "/docs" is marked by the empty object "<prefix>docs/"
//   - The root collection is the prefix itself and always exists
//   - Collections without a marker (created by other tools) are still
//     listed, since any common prefix counts as a collection
//
// S3 has no rename and no append. MOVE is a copy followed by a delete and is
// not atomic; append-mode writes fail with store.ErrNotSupported.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

const (
	// minPartSize is the smallest part S3 accepts in a multipart upload
	minPartSize = 5 * 1024 * 1024

	// defaultPartSize is the part size used when none is configured
	defaultPartSize = 10 * 1024 * 1024

	// maxDeleteBatch is the DeleteObjects limit per request
	maxDeleteBatch = 1000
)

// S3API is the subset of the S3 client used by the store. *s3.Client
// satisfies it.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, opts ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, opts ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, opts ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3StoreConfig contains the connection settings for the S3 store, as read
// from the configuration file.
type S3StoreConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	PartSize        int64  `mapstructure:"part_size"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// S3Store implements store.Store on an S3 bucket.
//
// Thread Safety:
// Structural mutations are serialized per collection path through a
// store.LockTable. This only coordinates requests served by this process;
// other writers to the same bucket are not seen until the next lookup.
type S3Store struct {
	client    S3API
	bucket    string
	keyPrefix string
	partSize  int64
	locks     *store.LockTable
}

// NewS3Client builds an S3 client from the configuration.
//
// Parameters:
//   - ctx: Context for loading the AWS configuration
//   - cfg: Endpoint, region, credentials and retry settings
//
// Returns:
//   - *s3.Client: Configured client
//   - error: Returns error if the AWS configuration cannot be loaded
func NewS3Client(ctx context.Context, cfg S3StoreConfig) (*s3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and Localstack need path-style addressing
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store connects to the bucket described by cfg.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, errors.New("S3 store: bucket is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("S3 store: region is required")
	}

	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := NewS3StoreWithClient(ctx, client, cfg.Bucket, cfg.KeyPrefix, cfg.PartSize)
	if err != nil {
		return nil, err
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		cfg.Bucket, cfg.Region, cfg.KeyPrefix)
	return s, nil
}

// NewS3StoreWithClient creates a store over an existing client and verifies
// bucket access. The bucket must already exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - client: S3 client (or a compatible implementation)
//   - bucket: Bucket name
//   - keyPrefix: Optional prefix for all object keys; a trailing "/" is added
//   - partSize: Multipart part size in bytes (0 = 10MB, minimum 5MB)
//
// Returns:
//   - *S3Store: Store rooted at the prefix
//   - error: Returns error if the configuration is invalid or the bucket is unreachable
func NewS3StoreWithClient(ctx context.Context, client S3API, bucket, keyPrefix string, partSize int64) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("S3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if partSize == 0 {
		partSize = defaultPartSize
	}
	if partSize < minPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}

	keyPrefix = strings.TrimLeft(keyPrefix, "/")
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", bucket, err)
	}

	return &S3Store{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		partSize:  partSize,
		locks:     store.NewLockTable(),
	}, nil
}

// Root returns the root collection.
func (s *S3Store) Root(ctx context.Context) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &collection{entry{store: s, path: store.RootPath}}, nil
}

// Close is a no-op; the S3 client holds no per-store resources.
func (s *S3Store) Close() error {
	return nil
}

// objectKey returns the key of the document at store path p.
func (s *S3Store) objectKey(p string) string {
	return s.keyPrefix + strings.TrimPrefix(p, "/")
}

// dirKey returns the marker key (and listing prefix) of the collection at p.
func (s *S3Store) dirKey(p string) string {
	if p == store.RootPath {
		return s.keyPrefix
	}
	return s.objectKey(p) + "/"
}

// copySource formats a CopyObject source, URL-encoding the key.
func (s *S3Store) copySource(key string) string {
	escaped := strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
	return s.bucket + "/" + escaped
}

// entryOf returns the entry of an item created by this store.
func (s *S3Store) entryOf(it store.Item) (*entry, bool, error) {
	switch v := it.(type) {
	case *collection:
		if v.store == s {
			return &v.entry, true, nil
		}
	case *document:
		if v.store == s {
			return &v.entry, false, nil
		}
	}
	return nil, false, &store.StoreError{
		Code:    store.ErrNotSupported,
		Message: "item belongs to a different store",
		Path:    it.Path(),
	}
}

// entry holds the state shared by collections and documents.
type entry struct {
	store   *S3Store
	path    string
	modTime time.Time
}

func (e *entry) Name() string {
	return store.BaseName(e.path)
}

func (e *entry) Path() string {
	return e.path
}

func (e *entry) ModTime() time.Time {
	return e.modTime
}

// mapError translates S3 errors into store errors.
func mapError(err error, p string) error {
	if err == nil {
		return nil
	}

	var se *store.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return store.NewError(store.ErrNotFound, p, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return store.NewError(store.ErrNotFound, p, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return store.NewError(store.ErrAccessDenied, p, err)
		}
	}
	return store.NewError(store.ErrIO, p, err)
}
