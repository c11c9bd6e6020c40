// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "clusterkit/")
//
// For several servers writing results to one bucket, wrap the store in a
// DDBCommitStore so "CURRENT" pointers are committed with DynamoDB
// conditional writes:
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), "clusterkit-commits", "s3://my-bucket/clusterkit/")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
