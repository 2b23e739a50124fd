package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodav/pkg/store"
)

// collection is a key prefix ending in "/".
type collection struct {
	entry
}

func (c *collection) Child(ctx context.Context, name string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := store.JoinPath(c.path, name)
	if store.ValidateName(name) != nil {
		return nil, store.NewError(store.ErrNotFound, p, nil)
	}
	return c.store.lookup(ctx, p)
}

func (c *collection) Children(ctx context.Context) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := c.store.dirKey(c.path)
	paginator := s3.NewListObjectsV2Paginator(c.store.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.store.bucket),
		Prefix:    aws.String(dir),
		Delimiter: aws.String("/"),
	})

	var items []store.Item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, c.path)
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), dir)
			if store.ValidateName(name) != nil {
				continue
			}
			items = append(items, &document{
				entry: entry{store: c.store, path: store.JoinPath(c.path, name), modTime: aws.ToTime(obj.LastModified)},
				size:  aws.ToInt64(obj.Size),
			})
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), dir), "/")
			if store.ValidateName(name) != nil {
				continue
			}
			p := store.JoinPath(c.path, name)
			items = append(items, &collection{entry{store: c.store, path: p, modTime: c.store.markerTime(ctx, p)}})
		}
	}
	return items, nil
}

func (c *collection) CreateCollection(ctx context.Context, name string) (store.Collection, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	p := store.JoinPath(c.path, name)
	if err := c.store.ensureFree(ctx, p); err != nil {
		return nil, err
	}
	if err := c.store.putEmpty(ctx, c.store.dirKey(p), p); err != nil {
		return nil, err
	}
	return &collection{entry{store: c.store, path: p, modTime: time.Now()}}, nil
}

func (c *collection) CreateDocument(ctx context.Context, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	p := store.JoinPath(c.path, name)
	if err := c.store.ensureFree(ctx, p); err != nil {
		return nil, err
	}
	if err := c.store.putEmpty(ctx, c.store.objectKey(p), p); err != nil {
		return nil, err
	}
	return &document{entry: entry{store: c.store, path: p, modTime: time.Now()}}, nil
}

func (c *collection) Delete(ctx context.Context, it store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, isCol, err := c.store.entryOf(it)
	if err != nil {
		return err
	}
	if e.path == store.RootPath || store.ParentPath(e.path) != c.path {
		return store.NewError(store.ErrNotFound, e.path, nil)
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	return c.store.remove(ctx, e.path, isCol)
}

func (c *collection) CopyItemHere(ctx context.Context, src store.Item, name string, deep bool) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e, isCol, err := c.store.entryOf(src)
	if err != nil {
		return err
	}
	if isCol && deep && (e.path == c.path || store.IsDescendant(c.path, e.path)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot copy a collection into itself", Path: e.path}
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	dst := store.JoinPath(c.path, name)
	if err := c.store.ensureFree(ctx, dst); err != nil {
		return err
	}
	return c.store.copyTree(ctx, e.path, dst, isCol, deep)
}

// MoveItemHere copies the source tree to its new name and then deletes the
// source. A failure halfway can leave both copies behind.
func (c *collection) MoveItemHere(ctx context.Context, src store.Item, name string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e, isCol, err := c.store.entryOf(src)
	if err != nil {
		return err
	}
	if e.path == store.RootPath {
		return &store.StoreError{Code: store.ErrAccessDenied, Message: "cannot move the root collection", Path: store.RootPath}
	}
	if isCol && (e.path == c.path || store.IsDescendant(c.path, e.path)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot move a collection into itself", Path: e.path}
	}

	unlock := c.store.locks.Lock(c.path, store.ParentPath(e.path))
	defer unlock()

	dst := store.JoinPath(c.path, name)
	if dst == e.path {
		return nil
	}
	if _, err := c.store.lookup(ctx, e.path); err != nil {
		return err
	}
	if err := c.store.ensureFree(ctx, dst); err != nil {
		return err
	}

	if err := c.store.copyTree(ctx, e.path, dst, isCol, true); err != nil {
		return err
	}
	return c.store.remove(ctx, e.path, isCol)
}

// lookup resolves the item at p: a document object first, then a collection
// marker, then any object below p.
func (s *S3Store) lookup(ctx context.Context, p string) (store.Item, error) {
	if p == store.RootPath {
		return &collection{entry{store: s, path: p}}, nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err == nil {
		return &document{
			entry: entry{store: s, path: p, modTime: aws.ToTime(head.LastModified)},
			size:  aws.ToInt64(head.ContentLength),
		}, nil
	}
	if err = mapError(err, p); !store.IsNotFound(err) {
		return nil, err
	}

	head, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dirKey(p)),
	})
	if err == nil {
		return &collection{entry{store: s, path: p, modTime: aws.ToTime(head.LastModified)}}, nil
	}
	if err = mapError(err, p); !store.IsNotFound(err) {
		return nil, err
	}

	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirKey(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, mapError(err, p)
	}
	if len(list.Contents) > 0 {
		return &collection{entry{store: s, path: p}}, nil
	}
	return nil, store.NewError(store.ErrNotFound, p, nil)
}

// markerTime returns the modification time of the collection marker at p,
// or the zero time when there is none.
func (s *S3Store) markerTime(ctx context.Context, p string) time.Time {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dirKey(p)),
	})
	if err != nil {
		return time.Time{}
	}
	return aws.ToTime(head.LastModified)
}

// ensureFree fails with ErrAlreadyExists when something lives at p.
func (s *S3Store) ensureFree(ctx context.Context, p string) error {
	_, err := s.lookup(ctx, p)
	if err == nil {
		return store.NewError(store.ErrAlreadyExists, p, nil)
	}
	if store.IsNotFound(err) {
		return nil
	}
	return err
}

func (s *S3Store) putEmpty(ctx context.Context, key, p string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	return mapError(err, p)
}

// copyTree copies the item at src to dst. Collections are copied with their
// marker; deep copies include every object below the source prefix.
func (s *S3Store) copyTree(ctx context.Context, src, dst string, isCol, deep bool) error {
	if !isCol {
		return s.copyObject(ctx, s.objectKey(src), s.objectKey(dst), dst)
	}

	if err := s.putEmpty(ctx, s.dirKey(dst), dst); err != nil {
		return err
	}
	if !deep {
		return nil
	}

	srcDir, dstDir := s.dirKey(src), s.dirKey(dst)
	keys, err := s.listAll(ctx, srcDir, src)
	if err != nil {
		return err
	}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, srcDir)
		if rel == "" {
			continue
		}
		if err := s.copyObject(ctx, key, dstDir+rel, dst); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) copyObject(ctx context.Context, from, to, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.copySource(from)),
		Key:        aws.String(to),
	})
	return mapError(err, p)
}

// remove deletes the document or collection tree at p.
func (s *S3Store) remove(ctx context.Context, p string, isCol bool) error {
	if !isCol {
		if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(p)),
		}); err != nil {
			return mapError(err, p)
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(p)),
		})
		return mapError(err, p)
	}

	keys, err := s.listAll(ctx, s.dirKey(p), p)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return store.NewError(store.ErrNotFound, p, nil)
	}
	return s.deleteObjects(ctx, keys, p)
}

// listAll returns every key below prefix, including the prefix marker.
func (s *S3Store) listAll(ctx context.Context, prefix, p string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, p)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteObjects removes keys in batches of maxDeleteBatch.
func (s *S3Store) deleteObjects(ctx context.Context, keys []string, p string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return mapError(err, p)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return store.NewError(store.ErrIO, p, fmt.Errorf("failed to delete %d objects, first %s: %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)))
		}
	}
	return nil
}
