package config

import (
	"fmt"
	"os"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultDecimals = 18

type presetFile struct {
	// Decimals of the asset the human amounts below are written in.
	Decimals *int32        `yaml:"decimals"`
	Asset    string        `yaml:"asset"`
	Presets  []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	models.ContestParams `yaml:",inline"`

	Fee    string `yaml:"entry_fee"`
	First  string `yaml:"payout_first"`
	Second string `yaml:"payout_second"`
	Third  string `yaml:"payout_third"`
}

// LoadPresets reads contest parameter sets from a YAML file. An empty path
// yields no presets.
func LoadPresets(path string) ([]models.ContestParams, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(raw)
}

// ParsePresets decodes and validates a presets document.
func ParsePresets(raw []byte) ([]models.ContestParams, error) {
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	decimals := int32(defaultDecimals)
	if file.Decimals != nil {
		decimals = *file.Decimals
	}
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must not be negative, got %d", decimals)
	}

	out := make([]models.ContestParams, 0, len(file.Presets))
	for i, entry := range file.Presets {
		params := entry.ContestParams
		if params.Asset == "" {
			params.Asset = models.Address(file.Asset)
		}
		params.Asset = models.NormalizeAddress(params.Asset.String())

		amounts := []struct {
			name string
			raw  string
			dst  *decimal.Decimal
		}{
			{"entry_fee", entry.Fee, &params.EntryFee},
			{"payout_first", entry.First, &params.PayoutFirst},
			{"payout_second", entry.Second, &params.PayoutSecond},
			{"payout_third", entry.Third, &params.PayoutThird},
		}
		for _, a := range amounts {
			if a.raw == "" {
				return nil, fmt.Errorf("preset %d: %s is required", i, a.name)
			}
			v, err := contest.ParseUnits(a.raw, decimals)
			if err != nil {
				return nil, fmt.Errorf("preset %d: %s: %w", i, a.name, err)
			}
			*a.dst = v
		}

		if err := contest.ValidateParams(params); err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
		out = append(out, params)
	}
	return out, nil
}
