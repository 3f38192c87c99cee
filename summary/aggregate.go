// Package summary builds the report's overview counters: calls per
// date, per device and per cause code. It tallies every notable call,
// independent of whether its groups reached an amber/red threshold, so
// below-threshold activity stays visible without being called out as
// an exception.
package summary

import (
	"sort"

	"cdr-exceptions/classifier"
	"cdr-exceptions/config"
	"cdr-exceptions/models"
)

// Aggregate computes the per-date histogram, per-device totals and
// per-cause-code totals over the filtered call set. A call is notable
// when it carries at least one non-excluded cause code or one
// poor-quality leg, the same membership test the classifier applies.
func Aggregate(calls []*models.Call, settings *config.Settings) ([]models.DateCount, []models.DeviceCount, []models.CauseCount) {
	dates := make(map[string]int)
	devices := make(map[string]int)
	causes := make(map[int]int)

	for _, call := range calls {
		notable := false
		if cause := call.OrigCause; cause != nil && !settings.CauseExcluded(*cause) {
			causes[*cause]++
			notable = true
		}
		if cause := call.DestCause; cause != nil && !settings.CauseExcluded(*cause) {
			causes[*cause]++
			notable = true
		}
		if classifier.QualityBreach(call.OrigQuality, settings) || classifier.QualityBreach(call.DestQuality, settings) {
			notable = true
		}
		if !notable {
			continue
		}

		dates[call.OriginationTime.Format("2006-01-02")]++
		// A device named on both legs of the same call counts once.
		if call.OrigDeviceName != "" {
			devices[call.OrigDeviceName]++
		}
		if call.DestDeviceName != "" && call.DestDeviceName != call.OrigDeviceName {
			devices[call.DestDeviceName]++
		}
	}

	return sortDates(dates), sortDevices(devices), sortCauses(causes)
}

// sortDates returns the histogram in chronological order.
func sortDates(m map[string]int) []models.DateCount {
	out := make([]models.DateCount, 0, len(m))
	for date, count := range m {
		out = append(out, models.DateCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// sortDevices orders by descending count, ties lexically.
func sortDevices(m map[string]int) []models.DeviceCount {
	out := make([]models.DeviceCount, 0, len(m))
	for device, count := range m {
		out = append(out, models.DeviceCount{DeviceName: device, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DeviceName < out[j].DeviceName
	})
	return out
}

// sortCauses orders by descending count, ties by ascending code.
func sortCauses(m map[int]int) []models.CauseCount {
	out := make([]models.CauseCount, 0, len(m))
	for cause, count := range m {
		out = append(out, models.CauseCount{Cause: cause, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cause < out[j].Cause
	})
	return out
}
