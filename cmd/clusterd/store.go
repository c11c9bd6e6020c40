package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/blobstore/minio"
	"github.com/hupe1980/clusterkit/blobstore/s3"
	"github.com/hupe1980/clusterkit/internal/cache"
	"github.com/hupe1980/clusterkit/resource"
)

// storeLocation is a parsed store setting.
type storeLocation struct {
	scheme string // "file", "memory", "s3" or "minio"
	host   string // minio endpoint
	bucket string
	prefix string
	path   string // local directory
}

func parseStore(raw string) (storeLocation, error) {
	if raw == "" {
		return storeLocation{}, fmt.Errorf("store: empty location")
	}
	if !strings.Contains(raw, "://") {
		return storeLocation{scheme: "file", path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storeLocation{}, fmt.Errorf("store %q: %w", raw, err)
	}
	p := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "file":
		return storeLocation{scheme: "file", path: u.Host + u.Path}, nil
	case "memory":
		return storeLocation{scheme: "memory"}, nil
	case "s3":
		if u.Host == "" {
			return storeLocation{}, fmt.Errorf("store %q: missing bucket", raw)
		}
		return storeLocation{scheme: "s3", bucket: u.Host, prefix: p}, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(p, "/")
		if u.Host == "" || bucket == "" {
			return storeLocation{}, fmt.Errorf("store %q: want minio://endpoint/bucket[/prefix]", raw)
		}
		return storeLocation{scheme: "minio", host: u.Host, bucket: bucket, prefix: prefix}, nil
	default:
		return storeLocation{}, fmt.Errorf("store %q: unsupported scheme %q", raw, u.Scheme)
	}
}

// openStore opens the configured blob store and fronts it with a block
// cache charged against rc.
func openStore(ctx context.Context, cfg config, rc *resource.Controller) (blobstore.BlobStore, error) {
	loc, err := parseStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	var store blobstore.BlobStore
	switch loc.scheme {
	case "file":
		store = blobstore.NewLocalStore(loc.path)
	case "memory":
		// Nothing to cache; blobs already live in memory.
		return blobstore.NewMemoryStore(blobstore.WithMemoryController(rc)), nil
	case "s3":
		var optFns []func(*awsconfig.LoadOptions) error
		if cfg.S3.Region != "" {
			optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
		}
		s3Store, err := s3.NewFromConfig(ctx, loc.bucket, loc.prefix, optFns...)
		if err != nil {
			return nil, err
		}
		store = s3Store
		if cfg.S3.DDBTable != "" {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
			if err != nil {
				return nil, err
			}
			store = s3.NewDDBCommitStore(s3Store, dynamodb.NewFromConfig(awsCfg), cfg.S3.DDBTable, cfg.Store)
		}
	case "minio":
		store, err = minio.Dial(ctx, loc.host, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Secure, loc.bucket, loc.prefix)
		if err != nil {
			return nil, err
		}
	}

	if cfg.CacheBytes <= 0 {
		return store, nil
	}
	return blobstore.NewCachingStore(store, cache.NewLRUBlockCache(cfg.CacheBytes, rc)), nil
}
