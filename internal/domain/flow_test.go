package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_TruncatesToUTCMidnight(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	in := time.Date(2025, time.January, 3, 18, 42, 7, 99, ist)
	got := Date(in)

	assert.Equal(t, time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestFlowRecordKey(t *testing.T) {
	r := FlowRecord{RunDate: Date(time.Date(2025, time.January, 3, 12, 0, 0, 0, time.UTC))}
	assert.Equal(t, "2025-01-03", r.Key())
}

func TestDateLayout_RoundTrip(t *testing.T) {
	parsed, err := time.Parse(DateLayout, "03-Jan-2025")
	require.NoError(t, err)
	assert.Equal(t, "03-Jan-2025", parsed.Format(DateLayout))
}
