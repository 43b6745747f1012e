package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"skillcat/internal/domain"
)

// CatalogETag returns a content hash of a decoded catalog and logs on failure.
// Equal catalogs hash equally regardless of when they were loaded.
func CatalogETag(logger *zap.Logger, catalog domain.Catalog) string {
	return hashWithLogger(logger, "catalog", func() (string, error) {
		return hashJSON(catalog)
	})
}

func hashJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
