package security

import (
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"direct child", "/bids/sub-01", "/bids", false},
		{"nested path", "/bids/sub-01/ses-1/anat", "/bids", false},
		{"directory itself", "/bids", "/bids", false},
		{"relative paths", "data/bids/sub-01", "data/bids", false},
		{"traversal with ..", "/bids/../etc/passwd", "/bids", true},
		{"traversal after clean", "/bids/sub-01/../../x", "/bids", true},
		{"sibling prefix", "/bids-other/sub-01", "/bids", true},
		{"relative escape", "../sub-01", ".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q, %q) error = %v, wantError %v", tt.filePath, tt.safeDir, err, tt.wantError)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		label     string
		wantError bool
	}{
		{"sub-01", false},
		{"sub-ABC123", false},
		{"sub-..", false},
		{"", true},
		{".", true},
		{"..", true},
		{"sub-01/../../etc", true},
		{`sub-01\x`, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			err := ValidateLabel("/bids", tt.label)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateLabel(%q) error = %v, wantError %v", tt.label, err, tt.wantError)
			}
		})
	}
}
