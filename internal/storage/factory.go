package storage

import (
	"context"
	"fmt"
	"os"
)

type FactoryResult struct {
	Driver  string
	Storage Storage
}

// FromEnv builds the archive backend from ARCHIVE_* env vars. The
// "none" driver disables archiving; the IPN handler tolerates a nil
// Storage.
func FromEnv(ctx context.Context) (FactoryResult, error) {
	driver := os.Getenv("ARCHIVE_DRIVER")
	if driver == "" {
		driver = "none"
	}

	switch driver {
	case "none":
		return FactoryResult{Driver: "none", Storage: nil}, nil

	case "local":
		baseDir := envOr("ARCHIVE_LOCAL_DIR", "./storage/ipn")
		urlPrefix := envOr("ARCHIVE_LOCAL_URL_PREFIX", "/ipn-archive")
		return FactoryResult{Driver: "local", Storage: NewLocal(baseDir, urlPrefix)}, nil

	case "s3":
		region := envOr("ARCHIVE_S3_REGION", "")
		bucket := envOr("ARCHIVE_S3_BUCKET", "")
		publicBase := envOr("ARCHIVE_S3_PUBLIC_BASE_URL", "")
		prefix := envOr("ARCHIVE_S3_PREFIX", "ipn")
		if region == "" || bucket == "" || publicBase == "" {
			return FactoryResult{}, fmt.Errorf("S3 config missing: ARCHIVE_S3_REGION, ARCHIVE_S3_BUCKET, ARCHIVE_S3_PUBLIC_BASE_URL required")
		}
		s, err := NewS3(ctx, S3Config{
			Region:        region,
			Bucket:        bucket,
			Prefix:        prefix,
			PublicBaseURL: publicBase,
		})
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: "s3", Storage: s}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown ARCHIVE_DRIVER: %s", driver)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
