package correlate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdr-exceptions/correlate"
	"cdr-exceptions/models"
)

func floatPtr(f float64) *float64 { return &f }

func ts(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func call(id string, orig, dest string) models.Record {
	return models.Record{Call: &models.CallRecord{
		CallID:          models.CallID{Node: "1", ID: id},
		OriginationTime: ts("2026-01-15 12:00:00"),
		OrigDeviceName:  orig,
		DestDeviceName:  dest,
	}}
}

func quality(id, device string, mos float64) models.Record {
	return models.Record{Quality: &models.QualityRecord{
		CallID:     models.CallID{Node: "1", ID: id},
		Timestamp:  ts("2026-01-15 12:03:00"),
		DeviceName: device,
		AvgMoS:     floatPtr(mos),
	}}
}

func TestFinalizeAttachesByDevice(t *testing.T) {
	tests := map[string]struct {
		records      []models.Record
		expectedOrig *float64
		expectedDest *float64
	}{
		"SourceDeviceMatch": {
			records:      []models.Record{call("100", "SEPA", "SEPB"), quality("100", "SEPA", 3.2)},
			expectedOrig: floatPtr(3.2),
		},
		"DestinationDeviceMatch": {
			records:      []models.Record{call("100", "SEPA", "SEPB"), quality("100", "SEPB", 3.2)},
			expectedDest: floatPtr(3.2),
		},
		"UnmatchedDeviceAppliesToBothLegs": {
			// Transferred calls re-use the identifier across device
			// pairs, so an unmatched device cannot be dropped.
			records:      []models.Record{call("100", "SEPA", "SEPB"), quality("100", "SEPC", 3.2)},
			expectedOrig: floatPtr(3.2),
			expectedDest: floatPtr(3.2),
		},
		"QualityBeforeCallStillAttaches": {
			records:      []models.Record{quality("100", "SEPA", 3.2), call("100", "SEPA", "SEPB")},
			expectedOrig: floatPtr(3.2),
		},
		"LaterMeasurementWinsPerLeg": {
			records: []models.Record{
				call("100", "SEPA", "SEPB"),
				quality("100", "SEPA", 3.2),
				quality("100", "SEPA", 4.1),
			},
			expectedOrig: floatPtr(4.1),
		},
		"BothLegsIndependently": {
			records: []models.Record{
				call("100", "SEPA", "SEPB"),
				quality("100", "SEPA", 3.2),
				quality("100", "SEPB", 4.1),
			},
			expectedOrig: floatPtr(3.2),
			expectedDest: floatPtr(4.1),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ix := correlate.NewIndex()
			for _, rec := range tt.records {
				ix.Ingest(rec)
			}
			calls, orphans := ix.Finalize()
			require.Len(t, calls, 1)
			assert.Zero(t, orphans)

			c := calls[0]
			if tt.expectedOrig != nil {
				require.NotNil(t, c.OrigQuality)
				assert.Equal(t, tt.expectedOrig, c.OrigQuality.AvgMoS)
			} else {
				assert.Nil(t, c.OrigQuality)
			}
			if tt.expectedDest != nil {
				require.NotNil(t, c.DestQuality)
				assert.Equal(t, tt.expectedDest, c.DestQuality.AvgMoS)
			} else {
				assert.Nil(t, c.DestQuality)
			}
		})
	}
}

func TestFinalizeCountsOrphans(t *testing.T) {
	ix := correlate.NewIndex()
	ix.Ingest(call("100", "SEPA", ""))
	ix.Ingest(quality("100", "SEPA", 4.0))
	ix.Ingest(quality("999", "SEPX", 3.0))
	ix.Ingest(quality("999", "SEPY", 3.1))

	calls, orphans := ix.Finalize()
	assert.Len(t, calls, 1)
	assert.Equal(t, 2, orphans)
}

func TestDuplicateCallLastWriteWins(t *testing.T) {
	first := call("100", "SEPA", "")
	second := call("100", "SEPB", "")
	second.Call.Duration = 90

	ix := correlate.NewIndex()
	ix.Ingest(first)
	ix.Ingest(call("200", "SEPC", ""))
	ix.Ingest(second)
	// A measurement matched before the replacement arrived must still
	// land on the surviving copy.
	ix.Ingest(quality("100", "SEPB", 3.3))

	calls, orphans := ix.Finalize()
	require.Len(t, calls, 2)
	assert.Zero(t, orphans)

	// Replacement keeps the first-seen position.
	assert.Equal(t, "100", calls[0].CallID.ID)
	assert.Equal(t, "SEPB", calls[0].OrigDeviceName)
	assert.Equal(t, 90, calls[0].Duration)
	require.NotNil(t, calls[0].OrigQuality)
	assert.Equal(t, 3.3, *calls[0].OrigQuality.AvgMoS)
	assert.Equal(t, "200", calls[1].CallID.ID)
}

func TestFilterWindow(t *testing.T) {
	window := models.Window{Start: ts("2026-01-15 00:00:00"), End: ts("2026-01-15 23:59:59")}

	mk := func(id, when string) *models.Call {
		return &models.Call{CallID: models.CallID{Node: "1", ID: id}, OriginationTime: ts(when)}
	}
	calls := []*models.Call{
		mk("1", "2026-01-14 23:59:59"),
		mk("2", "2026-01-15 00:00:00"),
		mk("3", "2026-01-15 12:30:00"),
		mk("4", "2026-01-15 23:59:59"),
		mk("5", "2026-01-16 00:00:00"),
	}

	got := correlate.FilterWindow(calls, window)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.CallID.ID)
	}
	// Both bounds are inclusive.
	assert.Equal(t, []string{"2", "3", "4"}, ids)
}
