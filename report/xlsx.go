package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"cdr-exceptions/models"
)

// WriteXLSX writes the analysis as a workbook: an exceptions sheet with
// one row per contributing call, plus devices, causes and dates sheets
// mirroring the overview tables.
func WriteXLSX(path string, a *models.Analysis, causeDescs map[int]string) error {
	d := Prepare(a, causeDescs)

	exceptions := [][]string{{
		"Severity", "Exception", "Instances", "Time (UTC)", "Calling", "Original Called",
		"Final Called", "Orig IP", "Dest IP", "Orig Cause", "Dest Cause",
		"Orig Device", "Dest Device", "Duration", "Orig Quality", "Dest Quality",
	}}
	for _, g := range d.Groups {
		for _, row := range g.Calls {
			exceptions = append(exceptions, []string{
				g.Severity, g.Title, strconv.Itoa(g.Count), row.Time, row.Calling,
				row.OriginalCalled, row.FinalCalled, row.OrigIP, row.DestIP,
				row.OrigCause, row.DestCause, row.OrigDevice, row.DestDevice,
				strconv.Itoa(row.Duration), row.OrigQuality, row.DestQuality,
			})
		}
	}

	devices := [][]string{{"Device", "Calls"}}
	for _, dc := range d.Devices {
		devices = append(devices, []string{dc.DeviceName, strconv.Itoa(dc.Count)})
	}
	causes := [][]string{{"Cause", "Description", "Calls"}}
	for _, cc := range d.Causes {
		causes = append(causes, []string{strconv.Itoa(cc.Cause), cc.Description, strconv.Itoa(cc.Count)})
	}
	dates := [][]string{{"Date", "Calls"}}
	for _, dc := range d.Dates {
		dates = append(dates, []string{dc.Date, strconv.Itoa(dc.Count)})
	}

	x := excelize.NewFile()
	add := func(name string, rows [][]string) error {
		idx, err := x.NewSheet(name)
		if err != nil {
			return err
		}
		for r, row := range rows {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := x.SetCellStr(name, cell, v); err != nil {
					return err
				}
			}
		}
		if name == "exceptions" {
			x.SetActiveSheet(idx)
		}
		return nil
	}
	for _, sheet := range []struct {
		name string
		rows [][]string
	}{
		{"exceptions", exceptions},
		{"devices", devices},
		{"causes", causes},
		{"dates", dates},
	} {
		if err := add(sheet.name, sheet.rows); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.name, err)
		}
	}
	if err := x.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return x.SaveAs(path)
}
