// Package report renders an analysis for people: plain text and JSON
// for the terminal, an HTML report with table of contents for
// distribution, and a multi-sheet XLSX workbook.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"cdr-exceptions/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Data holds prepared report data used by all renderers.
type Data struct {
	WindowStart   string     `json:"window_start"`
	WindowEnd     string     `json:"window_end"`
	Empty         bool       `json:"empty"`
	AmberCount    int        `json:"amber_count"`
	RedCount      int        `json:"red_count"`
	CallsInWindow int        `json:"calls_in_window"`
	RowErrors     int        `json:"row_errors"`
	OrphanQuality int        `json:"orphan_quality_records"`
	Dates         []models.DateCount   `json:"dates"`
	Devices       []models.DeviceCount `json:"devices"`
	Causes        []CauseRow           `json:"causes"`
	Groups        []GroupView          `json:"exceptions"`
}

// CauseRow pairs a cause-code total with its catalog description.
type CauseRow struct {
	Cause       int    `json:"cause"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
}

// GroupView is one exception group prepared for rendering.
type GroupView struct {
	Anchor   string    `json:"-"`
	Title    string    `json:"title"`
	Severity string    `json:"severity"`
	Count    int       `json:"count"`
	Calls    []CallRow `json:"calls"`
}

// CallRow is one contributing call flattened into display fields.
type CallRow struct {
	Time           string `json:"time"`
	CallID         string `json:"call_id"`
	OrigIP         string `json:"orig_ip,omitempty"`
	DestIP         string `json:"dest_ip,omitempty"`
	Calling        string `json:"calling,omitempty"`
	OriginalCalled string `json:"original_called,omitempty"`
	FinalCalled    string `json:"final_called,omitempty"`
	OrigCause      string `json:"orig_cause,omitempty"`
	DestCause      string `json:"dest_cause,omitempty"`
	OrigDevice     string `json:"orig_device,omitempty"`
	DestDevice     string `json:"dest_device,omitempty"`
	Duration       int    `json:"duration"`
	OrigQuality    string `json:"orig_quality,omitempty"`
	DestQuality    string `json:"dest_quality,omitempty"`
}

// Prepare flattens an analysis into renderer-ready data. The cause
// catalog is only consulted for descriptions; codes missing from it
// render with the bare number.
func Prepare(a *models.Analysis, causeDescs map[int]string) *Data {
	d := &Data{
		WindowStart:   a.Window.Start.UTC().Format(timeLayout),
		WindowEnd:     a.Window.End.UTC().Format(timeLayout),
		Empty:         a.Empty,
		AmberCount:    a.AmberCount,
		RedCount:      a.RedCount,
		CallsInWindow: a.CallsInWindow,
		RowErrors:     a.RowErrors,
		OrphanQuality: a.OrphanQuality,
		Dates:         a.Dates,
		Devices:       a.Devices,
	}
	for _, c := range a.Causes {
		d.Causes = append(d.Causes, CauseRow{Cause: c.Cause, Description: causeDescs[c.Cause], Count: c.Count})
	}
	for i := range a.Groups {
		g := &a.Groups[i]
		view := GroupView{
			Anchor:   fmt.Sprintf("exception-%d", i+1),
			Title:    g.Key.Label(),
			Severity: g.Severity.String(),
			Count:    g.Count(),
		}
		for _, call := range g.Calls {
			view.Calls = append(view.Calls, callRow(call))
		}
		d.Groups = append(d.Groups, view)
	}
	return d
}

func callRow(c *models.Call) CallRow {
	return CallRow{
		Time:           c.OriginationTime.UTC().Format(timeLayout),
		CallID:         c.CallID.String(),
		OrigIP:         c.OrigIP,
		DestIP:         c.DestIP,
		Calling:        c.CallingNumber,
		OriginalCalled: c.OriginalCalledNumber,
		FinalCalled:    c.FinalCalledNumber,
		OrigCause:      formatCause(c.OrigCause),
		DestCause:      formatCause(c.DestCause),
		OrigDevice:     c.OrigDeviceName,
		DestDevice:     c.DestDeviceName,
		Duration:       c.Duration,
		OrigQuality:    formatQuality(c.OrigQuality),
		DestQuality:    formatQuality(c.DestQuality),
	}
}

func formatCause(c *int) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d", *c)
}

func formatQuality(q *models.Quality) string {
	if !q.Present() {
		return ""
	}
	var parts []string
	if q.AvgMoS != nil {
		parts = append(parts, fmt.Sprintf("MoS %.2f", *q.AvgMoS))
	}
	if q.CCR != nil {
		parts = append(parts, fmt.Sprintf("CCR %.4f", *q.CCR))
	}
	return strings.Join(parts, ", ")
}

// FormatText returns the terminal representation of the analysis.
func FormatText(a *models.Analysis, causeDescs map[int]string) string {
	d := Prepare(a, causeDescs)
	var sb strings.Builder

	fmt.Fprintf(&sb, "Exception report %s to %s UTC\n", d.WindowStart, d.WindowEnd)
	fmt.Fprintf(&sb, "Calls in window: %d ; rows skipped: %d ; orphan quality records: %d\n",
		d.CallsInWindow, d.RowErrors, d.OrphanQuality)
	if d.Empty {
		sb.WriteString("No call records found in the input set.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Exceptions: %d red, %d amber\n\n", d.RedCount, d.AmberCount)

	if len(d.Dates) > 0 {
		sb.WriteString("Calls per date:\n")
		for _, dc := range d.Dates {
			fmt.Fprintf(&sb, "  %s : %d\n", dc.Date, dc.Count)
		}
		sb.WriteString("\n")
	}
	if len(d.Devices) > 0 {
		sb.WriteString("Calls per device:\n")
		for _, dc := range d.Devices {
			fmt.Fprintf(&sb, "  %s : %d\n", dc.DeviceName, dc.Count)
		}
		sb.WriteString("\n")
	}
	if len(d.Causes) > 0 {
		sb.WriteString("Calls per cause code:\n")
		for _, cc := range d.Causes {
			if cc.Description != "" {
				fmt.Fprintf(&sb, "  %d (%s) : %d\n", cc.Cause, cc.Description, cc.Count)
			} else {
				fmt.Fprintf(&sb, "  %d : %d\n", cc.Cause, cc.Count)
			}
		}
		sb.WriteString("\n")
	}

	for _, g := range d.Groups {
		fmt.Fprintf(&sb, "[%s] %s : %d instances\n", strings.ToUpper(g.Severity), g.Title, g.Count)
		for _, row := range g.Calls {
			fmt.Fprintf(&sb, "  %s %s -> %s cause=%s/%s dur=%ds", row.Time, row.Calling, row.FinalCalled,
				orDash(row.OrigCause), orDash(row.DestCause), row.Duration)
			if row.OrigQuality != "" || row.DestQuality != "" {
				fmt.Fprintf(&sb, " quality=[%s | %s]", orDash(row.OrigQuality), orDash(row.DestQuality))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatJSON returns the JSON representation of the analysis.
func FormatJSON(a *models.Analysis, causeDescs map[int]string) string {
	d := Prepare(a, causeDescs)
	jsonBytes, _ := json.MarshalIndent(d, "", "  ")
	return string(jsonBytes)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
