package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2024, 12, 1, 3, 0, 0, 0, loc) // still Nov 30 in UTC
	assert.Equal(t, "2024-11-30", DateKey(ts))
	assert.Equal(t, "2024-12-01", DateKey(ts.Add(12*time.Hour)))
}

func TestCodeIndexDeterministic(t *testing.T) {
	ts := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	a := CodeIndex(ts, "salt", 5040)
	b := CodeIndex(ts, "salt", 5040)
	assert.Equal(t, a, b)

	// same calendar day, different clock time → same index
	c := CodeIndex(ts.Add(5*time.Hour), "salt", 5040)
	assert.Equal(t, a, c)
}

func TestCodeIndexRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 60; day++ {
		idx := CodeIndex(start.AddDate(0, 0, day), "salt", 5040)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 5040)
	}
}

func TestCodeIndexEmptyUniverse(t *testing.T) {
	assert.Equal(t, 0, CodeIndex(time.Now(), "salt", 0))
}
