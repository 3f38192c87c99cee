// Package classifier groups in-window calls along device, cause-code
// and quality dimensions and classifies each group against the
// configured amber/red thresholds. Classification is a pure function
// of the call set and the settings.
package classifier

import (
	"sort"

	"cdr-exceptions/config"
	"cdr-exceptions/models"
)

// Classify builds exception groups from the filtered call set and
// returns the groups that reached at least the amber threshold, in
// report order, together with the overall amber and red counts.
// Groups classified none are dropped here; their calls remain visible
// through the summary aggregator.
func Classify(calls []*models.Call, settings *config.Settings) ([]models.ExceptionGroup, int, int) {
	groups := make(map[models.GroupKey]*models.ExceptionGroup)
	var order []models.GroupKey

	add := func(key models.GroupKey, call *models.Call) {
		g, ok := groups[key]
		if !ok {
			g = &models.ExceptionGroup{Key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Calls = append(g.Calls, call)
	}

	for _, call := range calls {
		// A call with a given termination cause is an exception for
		// both the device that originated it and the device that
		// received it, along either leg's cause code: four
		// device/cause combinations per call.
		for _, role := range []models.Role{models.RoleSource, models.RoleDestination} {
			device := call.OrigDeviceName
			if role == models.RoleDestination {
				device = call.DestDeviceName
			}
			if device == "" {
				continue
			}
			if cause := call.OrigCause; cause != nil && !settings.CauseExcluded(*cause) {
				add(models.GroupKey{DeviceName: device, Role: role, Dimension: models.DimOrigCause, Cause: *cause}, call)
			}
			if cause := call.DestCause; cause != nil && !settings.CauseExcluded(*cause) {
				add(models.GroupKey{DeviceName: device, Role: role, Dimension: models.DimDestCause, Cause: *cause}, call)
			}
		}

		// Each leg with a quality breach contributes independently, so
		// one call can land in both a source and a destination quality
		// group.
		if call.OrigDeviceName != "" && QualityBreach(call.OrigQuality, settings) {
			add(models.GroupKey{DeviceName: call.OrigDeviceName, Role: models.RoleSource, Dimension: models.DimQuality}, call)
		}
		if call.DestDeviceName != "" && QualityBreach(call.DestQuality, settings) {
			add(models.GroupKey{DeviceName: call.DestDeviceName, Role: models.RoleDestination, Dimension: models.DimQuality}, call)
		}
	}

	amber, red := 0, 0
	out := make([]models.ExceptionGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Severity = severity(g.Key.Dimension, len(g.Calls), settings)
		switch g.Severity {
		case models.SeverityRed:
			red++
		case models.SeverityAmber:
			amber++
		default:
			continue
		}
		out = append(out, *g)
	}

	sortGroups(out)
	return out, amber, red
}

// QualityBreach applies the poor-quality predicate: average MoS
// strictly below the MoS threshold, or CCR strictly above the CCR
// threshold. Values exactly on a threshold are not breaches.
func QualityBreach(q *models.Quality, settings *config.Settings) bool {
	if !q.Present() {
		return false
	}
	if q.AvgMoS != nil && *q.AvgMoS < settings.MoSThreshold {
		return true
	}
	if q.CCR != nil && *q.CCR > settings.CCRThreshold {
		return true
	}
	return false
}

// severity classifies an instance count against the dimension's
// threshold pair. The quality dimension carries its own counters,
// distinct from the MoS/CCR value thresholds.
func severity(dim models.Dimension, count int, settings *config.Settings) models.Severity {
	amber, redT := settings.CauseAmberThreshold, settings.CauseRedThreshold
	if dim == models.DimQuality {
		amber, redT = settings.MoSAmberThreshold, settings.MoSRedThreshold
	}
	switch {
	case count >= redT:
		return models.SeverityRed
	case count >= amber:
		return models.SeverityAmber
	default:
		return models.SeverityNone
	}
}

// sortGroups orders groups for the report: instance count descending,
// ties by device name, then cause code ascending with quality groups
// last, then dimension and role so the order is total and reproducible.
func sortGroups(groups []models.ExceptionGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := &groups[i], &groups[j]
		if a.Count() != b.Count() {
			return a.Count() > b.Count()
		}
		if a.Key.DeviceName != b.Key.DeviceName {
			return a.Key.DeviceName < b.Key.DeviceName
		}
		aq := a.Key.Dimension == models.DimQuality
		bq := b.Key.Dimension == models.DimQuality
		if aq != bq {
			return bq
		}
		if !aq && a.Key.Cause != b.Key.Cause {
			return a.Key.Cause < b.Key.Cause
		}
		if a.Key.Dimension != b.Key.Dimension {
			return a.Key.Dimension < b.Key.Dimension
		}
		return a.Key.Role < b.Key.Role
	})
}
