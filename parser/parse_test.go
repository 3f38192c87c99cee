package parser_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "cdr-exceptions/errors"
	"cdr-exceptions/models"
	"cdr-exceptions/parser"
)

const detailHeader = "callManagerId,globalCallID_callId,dateTimeOrigination," +
	"origIpv4v6Addr,destIpv4v6Addr,callingPartyNumber,originalCalledPartyNumber," +
	"finalCalledPartyNumber,origCause_value,destCause_value,origDeviceName," +
	"destDeviceName,origVarVQMetrics,destVarVQMetrics,duration"

const qualityHeader = "callManagerId,globalCallID_callId,dateTimeStamp,deviceName,varVQMetrics,duration"

// 2026-01-01 00:00:00 UTC
const epochJan1 = 1767225600

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestNewReaderSchemaDetection(t *testing.T) {
	tests := map[string]struct {
		input          string
		expectedSchema parser.Schema
		expectedError  error
	}{
		"CallDetailHeader": {
			input:          detailHeader + "\n",
			expectedSchema: parser.SchemaCallDetail,
		},
		"CallQualityHeader": {
			input:          qualityHeader + "\n",
			expectedSchema: parser.SchemaCallQuality,
		},
		"CaseInsensitiveHeader": {
			input:          strings.ToUpper(qualityHeader) + "\n",
			expectedSchema: parser.SchemaCallQuality,
		},
		"ByteOrderMarkStripped": {
			input:          "\ufeff" + detailHeader + "\n",
			expectedSchema: parser.SchemaCallDetail,
		},
		"SynonymHeaders": {
			// Older exports spell the node column and the timestamp
			// column differently.
			input:          "globalCallID_callManagerId,globalCallID_callId,dateTimeConnect,deviceName,varVQMetrics,duration\n",
			expectedSchema: parser.SchemaCallQuality,
		},
		"ExtraColumnsIgnored": {
			input:          qualityHeader + ",pkid,directoryNum\n",
			expectedSchema: parser.SchemaCallQuality,
		},
		"UnknownHeader": {
			input:         "alpha,beta,gamma\n",
			expectedError: customerrors.ErrUnknownSchema,
		},
		"DetailMissingColumn": {
			input:         strings.Replace(detailHeader, "duration", "other", 1) + "\n",
			expectedError: customerrors.ErrUnknownSchema,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := parser.NewReader(strings.NewReader(tt.input))
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSchema, r.Schema())
		})
	}
}

func TestNextCallDetail(t *testing.T) {
	tests := map[string]struct {
		row           string
		expected      *models.CallRecord
		expectedError error
	}{
		"FullRow": {
			row: `1,1001,1767225600,10.0.0.1,10.0.0.2,2001,3001,3002,41,16,SEP001,SEP002,` +
				`MLQK=4.08;MLQKav=4.10;CCR=0.0012;,MLQKav=3.50;CCR=0.0200;,185`,
			expected: &models.CallRecord{
				CallID:               models.CallID{Node: "1", ID: "1001"},
				OriginationTime:      time.Unix(epochJan1, 0).UTC(),
				OrigIP:               "10.0.0.1",
				DestIP:               "10.0.0.2",
				CallingNumber:        "2001",
				OriginalCalledNumber: "3001",
				FinalCalledNumber:    "3002",
				OrigCause:            intPtr(41),
				DestCause:            intPtr(16),
				OrigDeviceName:       "SEP001",
				DestDeviceName:       "SEP002",
				Duration:             185,
				OrigQuality:          &models.Quality{AvgMoS: floatPtr(4.10), CCR: floatPtr(0.0012)},
				DestQuality:          &models.Quality{AvgMoS: floatPtr(3.50), CCR: floatPtr(0.0200)},
			},
		},
		"OptionalFieldsEmpty": {
			row: `1,1002,1767225600,,,2001,,,,,,,,,`,
			expected: &models.CallRecord{
				CallID:          models.CallID{Node: "1", ID: "1002"},
				OriginationTime: time.Unix(epochJan1, 0).UTC(),
				CallingNumber:   "2001",
			},
		},
		"EmptyDurationIsZero": {
			row: `1,1003,1767225600,,,,,,0,0,SEP001,,,,`,
			expected: &models.CallRecord{
				CallID:          models.CallID{Node: "1", ID: "1003"},
				OriginationTime: time.Unix(epochJan1, 0).UTC(),
				OrigCause:       intPtr(0),
				DestCause:       intPtr(0),
				OrigDeviceName:  "SEP001",
			},
		},
		"Error_MissingCallID": {
			row:           `,1004,1767225600,,,,,,,,,,,,10`,
			expectedError: customerrors.ErrMissingCallID,
		},
		"Error_BadTimestamp": {
			row:           `1,1005,not-a-time,,,,,,,,,,,,10`,
			expectedError: customerrors.ErrInvalidTimestamp,
		},
		"Error_BadCauseCode": {
			row:           `1,1006,1767225600,,,,,,forty-one,,,,,,10`,
			expectedError: customerrors.ErrInvalidCauseCode,
		},
		"Error_BadDuration": {
			row:           `1,1007,1767225600,,,,,,,,,,,,ten`,
			expectedError: customerrors.ErrInvalidDuration,
		},
		"Error_ShortRow": {
			row:           `1,1008,1767225600`,
			expectedError: customerrors.ErrShortRow,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := parser.NewReader(strings.NewReader(detailHeader + "\n" + tt.row + "\n"))
			require.NoError(t, err)

			rec, err := r.Next()
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				// The header is line 1, so the first data row is line 2.
				var rowErr *customerrors.RowParseError
				require.ErrorAs(t, err, &rowErr)
				assert.Equal(t, 2, rowErr.Line)

				// Row errors are recoverable: the reader continues to EOF.
				_, err = r.Next()
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rec.Call)
			assert.Nil(t, rec.Quality)
			assert.Equal(t, tt.expected, rec.Call)
		})
	}
}

func TestNextCallQuality(t *testing.T) {
	tests := map[string]struct {
		row           string
		expected      *models.QualityRecord
		expectedError error
	}{
		"FullRow": {
			row: `1,1001,1767225600,SEP001,MLQK=4.08;MLQKav=3.55;CCR=0.0150;,120`,
			expected: &models.QualityRecord{
				CallID:     models.CallID{Node: "1", ID: "1001"},
				Timestamp:  time.Unix(epochJan1, 0).UTC(),
				DeviceName: "SEP001",
				Leg:        models.LegUnknown,
				AvgMoS:     floatPtr(3.55),
				CCR:        floatPtr(0.0150),
				Duration:   120,
			},
		},
		"NoExtractableMetrics": {
			// The composite legitimately omits MLQKav/CCR for some call
			// types; that is not a row failure.
			row: `1,1002,1767225600,SEP002,ICR=0.0;SCS=0;,60`,
			expected: &models.QualityRecord{
				CallID:     models.CallID{Node: "1", ID: "1002"},
				Timestamp:  time.Unix(epochJan1, 0).UTC(),
				DeviceName: "SEP002",
				Leg:        models.LegUnknown,
				Duration:   60,
			},
		},
		"Error_MissingCallID": {
			row:           `1,,1767225600,SEP001,MLQKav=4.0;,60`,
			expectedError: customerrors.ErrMissingCallID,
		},
		"Error_BadTimestamp": {
			row:           `1,1003,yesterday,SEP001,MLQKav=4.0;,60`,
			expectedError: customerrors.ErrInvalidTimestamp,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := parser.NewReader(strings.NewReader(qualityHeader + "\n" + tt.row + "\n"))
			require.NoError(t, err)

			rec, err := r.Next()
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rec.Quality)
			assert.Nil(t, rec.Call)
			assert.Equal(t, tt.expected, rec.Quality)
		})
	}
}

func TestNextRecoversAcrossRows(t *testing.T) {
	input := detailHeader + "\n" +
		`1,2001,1767225600,,,,,,41,,SEP001,,,,10` + "\n" +
		`1,2002,bogus,,,,,,41,,SEP001,,,,10` + "\n" +
		`1,2003,1767225600,,,,,,41,,SEP001,,,,10` + "\n"

	r, err := parser.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	var parsed []string
	rowErrs := 0
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs++
			continue
		}
		parsed = append(parsed, rec.Call.CallID.ID)
	}
	assert.Equal(t, 1, rowErrs)
	assert.Equal(t, []string{"2001", "2003"}, parsed)
}

func TestExtractQuality(t *testing.T) {
	tests := map[string]struct {
		composite string
		expected  *models.Quality
	}{
		"BothValues": {
			composite: "MLQK=4.08;MLQKav=4.10;MLQKmn=3.97;MLQKmx=4.13;CCR=0.0012;ICR=0.0;",
			expected:  &models.Quality{AvgMoS: floatPtr(4.10), CCR: floatPtr(0.0012)},
		},
		"MoSOnly": {
			composite: "MLQKav=3.20;",
			expected:  &models.Quality{AvgMoS: floatPtr(3.20)},
		},
		"CCROnly": {
			composite: "CCR=0.0500;",
			expected:  &models.Quality{CCR: floatPtr(0.0500)},
		},
		"Empty": {
			composite: "",
			expected:  nil,
		},
		"NothingExtractable": {
			composite: "ICR=0.0;SCS=0;",
			expected:  nil,
		},
		"AverageNotConfusedWithPlainMLQK": {
			composite: "MLQK=4.08;ICR=0.0;",
			expected:  nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.ExtractQuality(tt.composite))
		})
	}
}
