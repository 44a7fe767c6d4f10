package domain

import "strings"

// Partition labels used on reports and query filters.
const (
	PartitionCore    = "core"
	PartitionOutlier = "outlier"
)

// PartitionLabel returns the partition name for an outlier flag.
func PartitionLabel(isOutlier bool) string {
	if isOutlier {
		return PartitionOutlier
	}

	return PartitionCore
}

// ParsePartition normalizes a partition query value. Empty input and "all"
// both mean no partition filter. The second return reports whether the value
// was recognized.
func ParsePartition(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return "", true
	case PartitionCore:
		return PartitionCore, true
	case PartitionOutlier, "outliers":
		return PartitionOutlier, true
	}

	return "", false
}
