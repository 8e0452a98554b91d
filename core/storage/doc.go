// Package storage wraps an S3-compatible object store (MinIO, AWS S3) behind a small
// Client interface so snapshot code can be tested with the mocks package.
//
// # Configuration
//
// An empty endpoint disables the store; NewClient then returns ErrDisabled and the
// snapshot routes are not registered.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
