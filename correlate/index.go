// Package correlate owns the per-run call index: call records keyed by
// call identifier, quality records matched onto them, and the time
// window filter applied once correlation is complete.
package correlate

import (
	"cdr-exceptions/models"
)

// Index correlates quality records to their parent call record by
// shared call identifier. It is constructed per run, ingested strictly
// sequentially (last-write-wins collision handling is order dependent),
// finalized once, then discarded.
type Index struct {
	calls   map[models.CallID]*models.Call
	order   []models.CallID
	quality map[models.CallID][]*models.QualityRecord
	qorder  []models.CallID
}

// NewIndex returns an empty index ready for ingestion.
func NewIndex() *Index {
	return &Index{
		calls:   make(map[models.CallID]*models.Call),
		quality: make(map[models.CallID][]*models.QualityRecord),
	}
}

// Ingest accepts one parsed record and updates correlation state.
// A duplicate call identifier replaces the earlier call record: export
// re-runs emit the same call again and the freshest copy wins. Quality
// records are held until Finalize so a later replacement cannot drop
// measurements that were already matched.
func (ix *Index) Ingest(rec models.Record) {
	switch {
	case rec.Call != nil:
		id := rec.Call.CallID
		if _, seen := ix.calls[id]; !seen {
			ix.order = append(ix.order, id)
		}
		ix.calls[id] = rec.Call
	case rec.Quality != nil:
		id := rec.Quality.CallID
		if _, seen := ix.quality[id]; !seen {
			ix.qorder = append(ix.qorder, id)
		}
		ix.quality[id] = append(ix.quality[id], rec.Quality)
	}
}

// Finalize resolves every held quality record against the call set and
// returns the correlated calls in first-seen order plus the number of
// orphans (quality records whose call identifier matched nothing).
func (ix *Index) Finalize() ([]*models.Call, int) {
	orphans := 0
	for _, id := range ix.qorder {
		call, ok := ix.calls[id]
		if !ok {
			orphans += len(ix.quality[id])
			continue
		}
		for _, qr := range ix.quality[id] {
			attach(call, qr)
		}
	}

	calls := make([]*models.Call, 0, len(ix.order))
	for _, id := range ix.order {
		calls = append(calls, ix.calls[id])
	}
	return calls, orphans
}

// attach folds one quality measurement into the call's leg slots. The
// leg is resolved by device name; a measurement whose device matches
// neither endpoint (transferred calls re-use the identifier across
// device pairs) is applied to both legs. A measurement carrying no
// extracted values matches but contributes nothing. Later measurements
// for the same leg win, consistent with the call-record policy.
func attach(call *models.Call, qr *models.QualityRecord) {
	q := &models.Quality{AvgMoS: qr.AvgMoS, CCR: qr.CCR}
	if !q.Present() {
		return
	}
	switch {
	case qr.DeviceName != "" && qr.DeviceName == call.OrigDeviceName:
		qr.Leg = models.LegSource
		call.OrigQuality = q
	case qr.DeviceName != "" && qr.DeviceName == call.DestDeviceName:
		qr.Leg = models.LegDestination
		call.DestQuality = q
	default:
		call.OrigQuality = q
		call.DestQuality = q
	}
}

// FilterWindow retains only calls whose origination time falls inside
// the inclusive window. It runs after correlation so a quality record
// whose own timestamp sits just outside the window still counts, as
// long as its parent call is in range.
func FilterWindow(calls []*models.Call, w models.Window) []*models.Call {
	out := make([]*models.Call, 0, len(calls))
	for _, call := range calls {
		if w.Contains(call.OriginationTime) {
			out = append(out, call)
		}
	}
	return out
}
