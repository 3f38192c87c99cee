// Package config loads and validates the exception-reporting settings
// and the cause-code description catalog. Files may be JSON or YAML,
// keyed on extension. The engine receives a fully validated Settings
// value and never re-checks it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds the threshold and exclusion configuration consumed
// read-only by the classifier and aggregator.
type Settings struct {
	ExcludedCauseCodes  map[int]struct{}
	CauseAmberThreshold int
	CauseRedThreshold   int
	MoSThreshold        float64
	CCRThreshold        float64
	MoSAmberThreshold   int
	MoSRedThreshold     int
}

// CauseExcluded reports whether a cause code is on the exclusion list.
func (s *Settings) CauseExcluded(code int) bool {
	_, ok := s.ExcludedCauseCodes[code]
	return ok
}

// fileSettings mirrors the settings file; pointers distinguish a
// missing key from a zero value so every key can be required.
type fileSettings struct {
	CauseCodesExcluded  *[]int   `json:"cause_codes_excluded" yaml:"cause_codes_excluded"`
	CauseAmberThreshold *int     `json:"cause_code_amber_threshold" yaml:"cause_code_amber_threshold"`
	CauseRedThreshold   *int     `json:"cause_code_red_threshold" yaml:"cause_code_red_threshold"`
	MoSThreshold        *float64 `json:"mos_threshold" yaml:"mos_threshold"`
	CCRThreshold        *float64 `json:"ccr_threshold" yaml:"ccr_threshold"`
	MoSAmberThreshold   *int     `json:"mos_amber_threshold" yaml:"mos_amber_threshold"`
	MoSRedThreshold     *int     `json:"mos_red_threshold" yaml:"mos_red_threshold"`
}

// Load reads, decodes and validates the settings file.
func Load(path string) (*Settings, error) {
	var fc fileSettings
	if err := decodeFile(path, &fc); err != nil {
		return nil, err
	}

	switch {
	case fc.CauseCodesExcluded == nil:
		return nil, errors.New("excluded cause codes missing")
	case fc.CauseAmberThreshold == nil:
		return nil, errors.New("cause code amber threshold missing")
	case fc.CauseRedThreshold == nil:
		return nil, errors.New("cause code red threshold missing")
	case fc.MoSThreshold == nil:
		return nil, errors.New("MoS threshold missing")
	case fc.CCRThreshold == nil:
		return nil, errors.New("CCR threshold missing")
	case fc.MoSAmberThreshold == nil:
		return nil, errors.New("MoS amber threshold missing")
	case fc.MoSRedThreshold == nil:
		return nil, errors.New("MoS red threshold missing")
	}

	s := &Settings{
		ExcludedCauseCodes:  make(map[int]struct{}, len(*fc.CauseCodesExcluded)),
		CauseAmberThreshold: *fc.CauseAmberThreshold,
		CauseRedThreshold:   *fc.CauseRedThreshold,
		MoSThreshold:        *fc.MoSThreshold,
		CCRThreshold:        *fc.CCRThreshold,
		MoSAmberThreshold:   *fc.MoSAmberThreshold,
		MoSRedThreshold:     *fc.MoSRedThreshold,
	}
	for _, code := range *fc.CauseCodesExcluded {
		s.ExcludedCauseCodes[code] = struct{}{}
	}

	if err := validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func validate(s *Settings) error {
	if s.CauseAmberThreshold <= 0 || s.CauseRedThreshold <= 0 {
		return errors.New("cause code thresholds must be positive")
	}
	if s.CauseRedThreshold < s.CauseAmberThreshold {
		return errors.New("cause code red threshold must be >= amber threshold")
	}
	if s.MoSAmberThreshold <= 0 || s.MoSRedThreshold <= 0 {
		return errors.New("MoS count thresholds must be positive")
	}
	if s.MoSRedThreshold < s.MoSAmberThreshold {
		return errors.New("MoS red threshold must be >= amber threshold")
	}
	if s.MoSThreshold <= 0 {
		return errors.New("MoS threshold must be positive")
	}
	if s.CCRThreshold < 0 {
		return errors.New("CCR threshold must not be negative")
	}
	return nil
}

// LoadCauseCodes reads the numeric code to description catalog used by
// report rendering. Keys are strings in the file ("41": "Temporary
// failure") since JSON objects cannot carry integer keys.
func LoadCauseCodes(path string) (map[int]string, error) {
	var raw map[string]string
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("cause code catalog is empty")
	}
	codes := make(map[int]string, len(raw))
	for key, desc := range raw {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("cause code %q is not numeric", key)
		}
		codes[code] = desc
	}
	return codes, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, out)
	default:
		return yaml.Unmarshal(data, out)
	}
}
