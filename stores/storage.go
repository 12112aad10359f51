package stores

import (
	"context"
	"fmt"

	"carousel-studio/config"
	"carousel-studio/core"
	"carousel-studio/stores/aws"
	"carousel-studio/stores/filesystem"
	"carousel-studio/stores/memory"
	"carousel-studio/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.CarouselStore
	core.TemplateStore
}

func GetStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var store Store
	var err error

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store, err = filesystem.NewStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DSN
		store, err = sqlite.NewStore(cfg.DSN)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage needs a bucket name")
		}
		storageField["bucketName"] = cfg.S3Bucket
		store, err = aws.NewStore(ctx, cfg.S3Bucket)
	case "", "memory":
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Type, err)
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
