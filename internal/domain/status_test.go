package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionLabel(t *testing.T) {
	assert.Equal(t, "core", PartitionLabel(false))
	assert.Equal(t, "outlier", PartitionLabel(true))
}

func TestParsePartition(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"", "", true},
		{"all", "", true},
		{"core", "core", true},
		{"Core", "core", true},
		{"outlier", "outlier", true},
		{"outliers", "outlier", true},
		{" OUTLIER ", "outlier", true},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePartition(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
