// Package cache keeps recently read blobs in memory.
//
// LRUBlockCache bounds its own size and, when given a resource.Controller,
// charges every cached byte against the process memory limit. A Set that the
// controller refuses is dropped rather than blocking the reader.
package cache
