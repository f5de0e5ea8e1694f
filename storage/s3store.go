package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

/*
S3Store is a storage provider over S3-compatible object storage, via the
minio client. The client defers the actual GET until the first read or seek,
so missing objects surface on GetRange rather than Get.
*/

////////////////////////////////////////////////////////////////////////////////

const noSuchKeyCode = "NoSuchKey"

// S3Store is an object storage provider backed by an S3-compatible service.
type S3Store struct {
	mc       *minio.Client
	bucket   string
	partsize uint64
}

// NewS3Store returns a store writing to the given bucket. Multipart uploads
// use parts of partsizeBytes.
func NewS3Store(mc *minio.Client, bucket string, partsizeBytes int) *S3Store {
	return &S3Store{
		mc:       mc,
		bucket:   bucket,
		partsize: uint64(partsizeBytes),
	}
}

// Put streams an object into the bucket.
func (s *S3Store) Put(ctx context.Context, id string, r io.Reader) error {
	opts := minio.PutObjectOptions{PartSize: s.partsize}
	if _, err := s.mc.PutObject(ctx, s.bucket, id, r, -1, opts); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Get returns a reader over the object.
func (s *S3Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		if missing(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

// GetRange returns a reader over length bytes of the object starting at
// offset.
func (s *S3Store) GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(int64(offset), int64(offset+length-1)); err != nil {
		return nil, fmt.Errorf("failed to set range: %w", err)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, id, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if _, err := obj.Seek(int64(offset), io.SeekStart); err != nil {
		if missing(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to seek: %w", err)
	}
	return obj, nil
}

// Delete removes the object from the bucket. Deleting a missing object is
// not an error, per S3 semantics.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		if missing(err) {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *S3Store) String() string {
	return fmt.Sprintf("s3(%s)", s.bucket)
}

func missing(err error) bool {
	return minio.ToErrorResponse(err).Code == noSuchKeyCode
}
