package models

import (
	"fmt"
	"time"
)

// CallID identifies a call within a cluster: the call-manager node that
// emitted it plus the global call identifier. Calls from different
// clusters never share an identifier, so no cluster field is carried.
type CallID struct {
	Node string
	ID   string
}

func (c CallID) String() string { return c.Node + ":" + c.ID }

// Leg distinguishes the two endpoints of a call.
type Leg int

const (
	// LegUnknown means the leg could not be determined from the row
	// alone; the call index resolves it during correlation.
	LegUnknown Leg = iota
	LegSource
	LegDestination
)

func (l Leg) String() string {
	switch l {
	case LegSource:
		return "source"
	case LegDestination:
		return "destination"
	default:
		return "unknown"
	}
}

// Quality holds the extracted voice-quality measurements for one leg.
// Either value may be absent depending on call type.
type Quality struct {
	AvgMoS *float64
	CCR    *float64
}

// Present reports whether at least one measurement was extracted.
func (q *Quality) Present() bool {
	return q != nil && (q.AvgMoS != nil || q.CCR != nil)
}

// CallRecord is one call leg from a call-detail (CDR) export.
// Cause codes and device names are optional in the export; quality
// slots are filled either inline from the CDR's VQ-metrics columns or
// later by correlation with a QualityRecord.
type CallRecord struct {
	CallID               CallID
	OriginationTime      time.Time
	OrigIP               string
	DestIP               string
	CallingNumber        string
	OriginalCalledNumber string
	FinalCalledNumber    string
	OrigCause            *int
	DestCause            *int
	OrigDeviceName       string
	DestDeviceName       string
	Duration             int
	OrigQuality          *Quality
	DestQuality          *Quality
}

// QualityRecord is one quality-measurement leg from a call-quality
// (CMR) export. Leg stays LegUnknown until the index matches
// DeviceName against the parent call's endpoint devices.
type QualityRecord struct {
	CallID     CallID
	Timestamp  time.Time
	DeviceName string
	Leg        Leg
	AvgMoS     *float64
	CCR        *float64
	Duration   int
}

// Record is the tagged result of parsing one row: exactly one of the
// two fields is set, according to the schema of the file being read.
type Record struct {
	Call    *CallRecord
	Quality *QualityRecord
}

// Call is a correlated call: the call record with any matched quality
// measurements folded into its leg slots.
type Call = CallRecord

// Window is an inclusive UTC time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Role says which endpoint of the call a group is keyed on.
type Role int

const (
	RoleSource Role = iota
	RoleDestination
)

func (r Role) String() string {
	if r == RoleDestination {
		return "destination"
	}
	return "source"
}

// Dimension is the axis an exception group is built along.
type Dimension int

const (
	DimOrigCause Dimension = iota
	DimDestCause
	DimQuality
)

func (d Dimension) String() string {
	switch d {
	case DimOrigCause:
		return "orig cause"
	case DimDestCause:
		return "dest cause"
	default:
		return "quality"
	}
}

// GroupKey identifies an exception group. Cause carries the cause code
// for the cause dimensions and is zero for the quality dimension.
type GroupKey struct {
	DeviceName string
	Role       Role
	Dimension  Dimension
	Cause      int
}

// Label renders the key the way report sections title a group.
func (k GroupKey) Label() string {
	if k.Dimension == DimQuality {
		return fmt.Sprintf("%s device %s: poor MoS/CCR", k.Role, k.DeviceName)
	}
	return fmt.Sprintf("%s device %s: %s %d", k.Role, k.DeviceName, k.Dimension, k.Cause)
}

// Severity is the classification of a group against its thresholds.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityAmber
	SeverityRed
)

func (s Severity) String() string {
	switch s {
	case SeverityAmber:
		return "amber"
	case SeverityRed:
		return "red"
	default:
		return "none"
	}
}

// ExceptionGroup is a key plus its contributing calls in processing
// order and the derived classification.
type ExceptionGroup struct {
	Key      GroupKey
	Calls    []*Call
	Severity Severity
}

// Count returns the number of contributing calls.
func (g *ExceptionGroup) Count() int { return len(g.Calls) }

// DateCount is one bucket of the per-date histogram.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// DeviceCount is one row of the per-device totals table.
type DeviceCount struct {
	DeviceName string `json:"device"`
	Count      int    `json:"count"`
}

// CauseCount is one row of the per-cause-code totals table.
type CauseCount struct {
	Cause int `json:"cause"`
	Count int `json:"count"`
}

// Analysis is the complete engine output handed to presentation.
type Analysis struct {
	Window        Window
	Groups        []ExceptionGroup
	AmberCount    int
	RedCount      int
	Dates         []DateCount
	Devices       []DeviceCount
	Causes        []CauseCount
	CallsInWindow int
	RowErrors     int
	OrphanQuality int
	// Empty is set when no call at all survived ingestion; an empty
	// but valid report is a legitimate outcome, not an error.
	Empty bool
}
