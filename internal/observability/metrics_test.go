package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveGeocodeLabelsOutcome(t *testing.T) {
	before := testutil.CollectAndCount(GeocodeLatency)

	ObserveGeocode("forward_test", time.Now(), nil)
	ObserveGeocode("forward_test", time.Now(), errors.New("boom"))

	assert.Equal(t, before+2, testutil.CollectAndCount(GeocodeLatency))
}

func TestTrackQueryRecords(t *testing.T) {
	done := TrackQuery("select", "lost_posts_test")
	done()

	assert.GreaterOrEqual(t, testutil.CollectAndCount(DatabaseQueryLatency), 1)
}
