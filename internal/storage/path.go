package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildResultArchivePath names the parquet object holding one query's
// materialized result. Keys partition by dataset and calendar day so that
// bucket listings and lifecycle rules stay manageable.
func BuildResultArchivePath(dataset, traceID string, createdAt time.Time) (string, error) {
	if err := validatePathComponent(dataset, "dataset"); err != nil {
		return "", err
	}
	if err := validatePathComponent(traceID, "trace id"); err != nil {
		return "", err
	}

	ts := createdAt.UTC()
	return path.Join(
		dataset,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("result-%s.parquet", traceID),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
