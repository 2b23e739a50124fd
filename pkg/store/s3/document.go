package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodav/pkg/store"
)

// abortTimeout bounds the cleanup of a failed multipart upload.
const abortTimeout = 30 * time.Second

// document is a single object.
type document struct {
	entry
	size int64
}

func (d *document) Size() int64 {
	return d.size
}

func (d *document) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := d.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.store.bucket),
		Key:    aws.String(d.store.objectKey(d.path)),
	})
	if err != nil {
		return nil, mapError(err, d.path)
	}
	return result.Body, nil
}

// OpenWrite returns a streaming writer. Objects cannot be appended to, so
// append mode fails with ErrNotSupported.
func (d *document) OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if append {
		return nil, &store.StoreError{Code: store.ErrNotSupported, Message: "append is not supported by S3", Path: d.path}
	}

	return &s3Writer{
		store:    d.store,
		ctx:      ctx,
		key:      d.store.objectKey(d.path),
		path:     d.path,
		buffer:   &bytes.Buffer{},
		partSize: d.store.partSize,
	}, nil
}

// s3Writer implements io.WriteCloser for streaming writes to S3.
//
// Write Behavior:
//   - Writes are buffered until partSize is reached
//   - Each full buffer is uploaded as one part of a multipart upload
//   - Close() completes the multipart upload, or does a single PutObject if
//     the content never filled a part
//
// Memory usage is bounded by about one partSize per writer.
type s3Writer struct {
	store    *S3Store
	ctx      context.Context
	key      string
	path     string
	buffer   *bytes.Buffer
	partSize int64

	uploadID string
	parts    []types.CompletedPart
	err      error
	closed   bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed document stream")
	}
	if w.err != nil {
		return 0, w.err
	}

	n, _ := w.buffer.Write(p)

	if int64(w.buffer.Len()) >= w.partSize {
		if err := w.uploadPart(); err != nil {
			w.err = err
			return n, err
		}
	}
	return n, nil
}

func (w *s3Writer) uploadPart() error {
	if w.buffer.Len() == 0 {
		return nil
	}

	// Start multipart upload on first part
	if w.uploadID == "" {
		result, err := w.store.client.CreateMultipartUpload(w.ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(w.store.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil {
			return mapError(fmt.Errorf("failed to create multipart upload: %w", err), w.path)
		}
		w.uploadID = aws.ToString(result.UploadId)
	}

	partNumber := int32(len(w.parts) + 1)
	data := append([]byte(nil), w.buffer.Bytes()...)

	result, err := w.store.client.UploadPart(w.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.store.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		w.abort()
		return mapError(fmt.Errorf("failed to upload part %d: %w", partNumber, err), w.path)
	}

	w.parts = append(w.parts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	w.buffer.Reset()
	return nil
}

func (w *s3Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	if w.err != nil {
		w.abort()
		return w.err
	}

	// Content never filled a part: a single PutObject is enough
	if w.uploadID == "" {
		_, err := w.store.client.PutObject(w.ctx, &s3.PutObjectInput{
			Bucket: aws.String(w.store.bucket),
			Key:    aws.String(w.key),
			Body:   bytes.NewReader(w.buffer.Bytes()),
		})
		w.err = mapError(err, w.path)
		return w.err
	}

	if err := w.uploadPart(); err != nil {
		w.err = err
		return err
	}

	_, err := w.store.client.CompleteMultipartUpload(w.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.store.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		w.abort()
		w.err = mapError(fmt.Errorf("failed to complete multipart upload: %w", err), w.path)
		return w.err
	}
	return nil
}

// abort cancels an in-progress multipart upload with its own timeout, since
// the request context may already be done.
func (w *s3Writer) abort() {
	if w.uploadID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()

	_, _ = w.store.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.store.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	w.uploadID = ""
}

var _ store.Document = (*document)(nil)
var _ store.Collection = (*collection)(nil)
var _ store.Store = (*S3Store)(nil)
var _ S3API = (*s3.Client)(nil)
