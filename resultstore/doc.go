// Package resultstore persists fit results in a blob store.
//
// Every saved fit becomes a run with a time-ordered id:
//
//	results/<dataset>/<run-id>.json[.zst|.lz4]
//	results/<dataset>/CURRENT
//
// The run blob holds a Run envelope encoded with the store's codec and
// optionally wrapped in a compressed block. CURRENT names the latest run's
// blob and is rewritten after the run blob is in place, so readers never see
// a pointer to a missing run. On S3 the CURRENT pointer can be routed through
// DynamoDB with blobstore/s3.DDBCommitStore.
package resultstore
