package parser

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"cdr-exceptions/errors"
	"cdr-exceptions/models"
)

// Schema identifies which export a file's header belongs to. The
// schema is decided once per file from the header, never per row.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaCallDetail
	SchemaCallQuality
)

func (s Schema) String() string {
	switch s {
	case SchemaCallDetail:
		return "call-detail"
	case SchemaCallQuality:
		return "call-quality"
	default:
		return "unknown"
	}
}

// Canonical column names as they appear in call-manager exports.
const (
	colCallManagerID  = "callManagerId"
	colGlobalCallID   = "globalCallID_callId"
	colDateTimeOrig   = "dateTimeOrigination"
	colOrigIP         = "origIpv4v6Addr"
	colDestIP         = "destIpv4v6Addr"
	colCallingParty   = "callingPartyNumber"
	colOriginalCalled = "originalCalledPartyNumber"
	colFinalCalled    = "finalCalledPartyNumber"
	colOrigCause      = "origCause_value"
	colDestCause      = "destCause_value"
	colOrigDevice     = "origDeviceName"
	colDestDevice     = "destDeviceName"
	colOrigVQMetrics  = "origVarVQMetrics"
	colDestVQMetrics  = "destVarVQMetrics"
	colDateTimeStamp  = "dateTimeStamp"
	colDeviceName     = "deviceName"
	colVQMetrics      = "varVQMetrics"
	colDuration       = "duration"
)

var callDetailColumns = []string{
	colCallManagerID, colGlobalCallID, colDateTimeOrig,
	colOrigIP, colDestIP,
	colCallingParty, colOriginalCalled, colFinalCalled,
	colOrigCause, colDestCause,
	colOrigDevice, colDestDevice,
	colOrigVQMetrics, colDestVQMetrics,
	colDuration,
}

var callQualityColumns = []string{
	colCallManagerID, colGlobalCallID, colDateTimeStamp,
	colDeviceName, colVQMetrics,
	colDuration,
}

// Older export versions spell some headers differently; accept both.
var headerSynonyms = map[string]string{
	"globalcallid_callmanagerid": colCallManagerID,
	"datetimeconnect":            colDateTimeStamp,
}

// Reader parses rows from one export file into typed records. It is a
// finite, pull-based sequence: Next returns records one at a time so
// large exports need not be materialized in memory.
type Reader struct {
	csv    *csv.Reader
	schema Schema
	cols   map[string]int
	line   int
}

// NewReader consumes the header row, resolves the column layout and
// detects the schema. It returns errors.ErrUnknownSchema when the
// header matches neither export; callers skip such files.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	cols := resolveColumns(header)

	schema := SchemaUnknown
	if hasColumns(cols, callDetailColumns) {
		schema = SchemaCallDetail
	} else if hasColumns(cols, callQualityColumns) {
		schema = SchemaCallQuality
	}
	if schema == SchemaUnknown {
		return nil, errors.ErrUnknownSchema
	}

	return &Reader{csv: cr, schema: schema, cols: cols, line: 1}, nil
}

// Schema reports the export type detected from the header.
func (r *Reader) Schema() Schema { return r.schema }

// Next returns the next parsed record. It returns io.EOF at the end of
// the file and *errors.RowParseError for malformed rows; row errors are
// recoverable and the caller may keep calling Next.
func (r *Reader) Next() (models.Record, error) {
	row, err := r.csv.Read()
	if err != nil {
		return models.Record{}, err
	}
	r.line++

	if r.schema == SchemaCallDetail {
		rec, err := r.parseCallRecord(row)
		if err != nil {
			return models.Record{}, err
		}
		return models.Record{Call: rec}, nil
	}
	rec, err := r.parseQualityRecord(row)
	if err != nil {
		return models.Record{}, err
	}
	return models.Record{Quality: rec}, nil
}

func (r *Reader) parseCallRecord(row []string) (*models.CallRecord, error) {
	get, err := r.fields(row)
	if err != nil {
		return nil, err
	}

	id := models.CallID{Node: get(colCallManagerID), ID: get(colGlobalCallID)}
	if id.Node == "" || id.ID == "" {
		return nil, r.rowError(row, errors.ErrMissingCallID)
	}

	ts, err := parseEpoch(get(colDateTimeOrig))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidTimestamp)
	}

	origCause, err := parseOptionalInt(get(colOrigCause))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidCauseCode)
	}
	destCause, err := parseOptionalInt(get(colDestCause))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidCauseCode)
	}

	duration, err := parseDuration(get(colDuration))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidDuration)
	}

	return &models.CallRecord{
		CallID:               id,
		OriginationTime:      ts,
		OrigIP:               get(colOrigIP),
		DestIP:               get(colDestIP),
		CallingNumber:        get(colCallingParty),
		OriginalCalledNumber: get(colOriginalCalled),
		FinalCalledNumber:    get(colFinalCalled),
		OrigCause:            origCause,
		DestCause:            destCause,
		OrigDeviceName:       get(colOrigDevice),
		DestDeviceName:       get(colDestDevice),
		Duration:             duration,
		OrigQuality:          ExtractQuality(get(colOrigVQMetrics)),
		DestQuality:          ExtractQuality(get(colDestVQMetrics)),
	}, nil
}

func (r *Reader) parseQualityRecord(row []string) (*models.QualityRecord, error) {
	get, err := r.fields(row)
	if err != nil {
		return nil, err
	}

	id := models.CallID{Node: get(colCallManagerID), ID: get(colGlobalCallID)}
	if id.Node == "" || id.ID == "" {
		return nil, r.rowError(row, errors.ErrMissingCallID)
	}

	ts, err := parseEpoch(get(colDateTimeStamp))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidTimestamp)
	}

	duration, err := parseDuration(get(colDuration))
	if err != nil {
		return nil, r.rowError(row, errors.ErrInvalidDuration)
	}

	rec := &models.QualityRecord{
		CallID:     id,
		Timestamp:  ts,
		DeviceName: get(colDeviceName),
		Leg:        models.LegUnknown,
		Duration:   duration,
	}
	// Extraction failure on the composite is not a row failure: the
	// metrics blob legitimately omits sub-values for some call types.
	if q := ExtractQuality(get(colVQMetrics)); q != nil {
		rec.AvgMoS = q.AvgMoS
		rec.CCR = q.CCR
	}
	return rec, nil
}

// fields validates the row covers every resolved column and returns an
// accessor over it.
func (r *Reader) fields(row []string) (func(string) string, error) {
	for _, idx := range r.cols {
		if idx >= len(row) {
			return nil, r.rowError(row, errors.ErrShortRow)
		}
	}
	return func(name string) string {
		return strings.TrimSpace(row[r.cols[name]])
	}, nil
}

func (r *Reader) rowError(row []string, reason error) *errors.RowParseError {
	return &errors.RowParseError{Line: r.line, Record: row, Err: reason}
}

// resolveColumns maps canonical column names to their index in the
// header, matching case-insensitively and through known synonyms.
// Exports are UTF-8 with a BOM, which is stripped from the first cell.
func resolveColumns(header []string) map[string]int {
	canon := make(map[string]string, len(callDetailColumns)+len(callQualityColumns))
	for _, name := range callDetailColumns {
		canon[strings.ToLower(name)] = name
	}
	for _, name := range callQualityColumns {
		canon[strings.ToLower(name)] = name
	}

	cols := make(map[string]int)
	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(cell))
		if name, ok := headerSynonyms[key]; ok {
			key = strings.ToLower(name)
		}
		if name, ok := canon[key]; ok {
			if _, seen := cols[name]; !seen {
				cols[name] = i
			}
		}
	}
	return cols
}

func hasColumns(cols map[string]int, names []string) bool {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return false
		}
	}
	return true
}

// parseEpoch converts the export's epoch-seconds timestamp to a UTC
// instant.
func parseEpoch(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, 0).UTC(), nil
}

// parseOptionalInt treats an empty field as absent, not an error.
func parseOptionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseDuration treats an empty field as zero seconds.
func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
