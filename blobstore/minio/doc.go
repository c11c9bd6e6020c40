// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible services (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
//	store, err := minio.Dial(ctx, "localhost:9000", "minioadmin", "minioadmin", false, "clusterkit", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := blobstore.ReadAll(ctx, store, "datasets/iris.csv")
package minio
