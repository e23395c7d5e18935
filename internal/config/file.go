package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/fsrecon/internal/bids"
)

// FileConfig holds site defaults read from a JSON file. Any field left out
// keeps the command-line value; command-line values always win.
type FileConfig struct {
	AgeUnits       *string  `json:"age_units,omitempty"`
	License        *string  `json:"license,omitempty"`
	FreeSurferHome *string  `json:"freesurfer_home,omitempty"`
	EnvFile        *string  `json:"env_file,omitempty"`
	Ledger         *string  `json:"ledger,omitempty"`
	Report         *bool    `json:"report,omitempty"`
	Modalities     []string `json:"modalities,omitempty"`
}

// LoadFileConfig loads a FileConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadFileConfig(path string) (*FileConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := &FileConfig{}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	for _, m := range fc.Modalities {
		if _, err := bids.ParseModality(m); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	return fc, nil
}

// ApplyDefaults fills settings the command line left empty. Report is
// only taken from the file when reportSet is false.
func (c *Config) ApplyDefaults(fc *FileConfig, reportSet bool) {
	if fc == nil {
		return
	}
	fill := func(dst *string, src *string) {
		if *dst == "" && src != nil {
			*dst = *src
		}
	}
	fill(&c.AgeUnits, fc.AgeUnits)
	fill(&c.LicensePath, fc.License)
	fill(&c.FreeSurferHome, fc.FreeSurferHome)
	fill(&c.EnvFile, fc.EnvFile)
	fill(&c.LedgerPath, fc.Ledger)

	if !reportSet && fc.Report != nil {
		c.Report = *fc.Report
	}
	if len(c.Modalities) == 0 {
		for _, s := range fc.Modalities {
			if m, err := bids.ParseModality(s); err == nil {
				c.Modalities = append(c.Modalities, m)
			}
		}
	}
}
