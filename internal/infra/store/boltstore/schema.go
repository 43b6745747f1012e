package boltstore

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const (
	schemaVersion = 1

	rootBucketName     = "usage"
	metaBucketName     = "meta"
	logsBucketName     = "logs"
	logIDsBucketName   = "log_ids"
	countersBucketName = "counters"
	dailyBucketName    = "daily"
	weeklyBucketName   = "weekly"
	versionKey         = "version"
)

var dataBuckets = []string{
	logsBucketName,
	logIDsBucketName,
	countersBucketName,
	dailyBucketName,
	weeklyBucketName,
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return fmt.Errorf("create root bucket: %w", err)
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		for _, name := range dataBuckets {
			if _, err := root.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}

		current := readSchemaVersion(meta)
		switch {
		case current == 0:
			return writeSchemaVersion(meta, schemaVersion)
		case current > schemaVersion:
			return fmt.Errorf("unsupported usage schema version %d", current)
		case current < schemaVersion:
			return fmt.Errorf("missing migration path from %d to %d", current, schemaVersion)
		default:
			return nil
		}
	})
}

func readSchemaVersion(meta *bolt.Bucket) int {
	raw := meta.Get([]byte(versionKey))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

func writeSchemaVersion(meta *bolt.Bucket, version int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(version))
	return meta.Put([]byte(versionKey), buf)
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucketName))
	if root == nil {
		return nil, fmt.Errorf("missing root bucket")
	}
	b := root.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("missing %s bucket", name)
	}
	return b, nil
}
