package parser

import (
	"regexp"
	"strconv"

	"cdr-exceptions/models"
)

// The VQ-metrics column is a semicolon-delimited blob of sub-fields,
// e.g. "MLQK=4.08;MLQKav=4.10;MLQKmn=3.97;MLQKmx=4.13;CCR=0.0012;ICR=0.0;".
// The average MoS (MLQKav) and the conceal ratio (CCR) are the two
// values used for quality classification; the min/max variants are
// worst-case values and too sensitive to long calls with short bad
// periods.
var (
	mlqkAvRE = regexp.MustCompile(`MLQKav=([\d.]+);`)
	ccrRE    = regexp.MustCompile(`CCR=([\d.]+);`)
)

// ExtractQuality pulls AvgMoS and CCR out of a composite VQ-metrics
// value. Sub-fields the blob omits come back absent; a blob with
// neither yields nil. Extraction never fails a row, because the
// composite format varies by call type.
func ExtractQuality(composite string) *models.Quality {
	if composite == "" {
		return nil
	}
	q := &models.Quality{}
	if m := mlqkAvRE.FindStringSubmatch(composite); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			q.AvgMoS = &v
		}
	}
	if m := ccrRE.FindStringSubmatch(composite); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			q.CCR = &v
		}
	}
	if !q.Present() {
		return nil
	}
	return q
}
