// Package blobstore provides storage for datasets and fit results.
//
// BlobStore is the interface for reading and writing named blobs. Names are
// slash separated relative paths such as "datasets/iris.csv" or
// "results/iris/CURRENT". Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, memory-mapped reads, atomic renames
//   - MemoryStore: in-process map, for tests and ephemeral servers
//   - CachingStore: whole-blob LRU in front of any other store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//
// # Reading
//
//	data, err := blobstore.ReadAll(ctx, store, "datasets/points.csv")
//
// Blobs that implement Mappable expose their bytes without a copy.
package blobstore
