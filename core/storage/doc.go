// Package storage provides the object store that recorded API archives are
// kept in.
//
// It wraps the MinIO Go client behind a small Client interface, so both AWS
// S3 and self-hosted MinIO work, and tests can use core/storage/mocks.
//
// # Operations
//
//   - BucketExists / MakeBucket: Prepare the archive bucket.
//   - PutObject / GetObject: Upload and download archives.
//   - ListObjects / ObjectNames: Enumerate stored archives.
//   - RemoveObject: Delete an archive.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	names, err := storage.ObjectNames(ctx, client, cfg.Storage.Bucket, cfg.Storage.Prefix)
package storage
