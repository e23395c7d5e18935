package bids

import (
	"fmt"
	"strings"
)

// Modality is an anatomical contrast token found in BIDS filenames.
type Modality string

// Supported modalities, in the order they are reported.
const (
	T1w    Modality = "T1w"
	T2w    Modality = "T2w"
	FLAIR  Modality = "FLAIR"
	MPRAGE Modality = "MPRAGE"
)

// AllModalities lists every supported modality.
var AllModalities = []Modality{T1w, T2w, FLAIR, MPRAGE}

// ParseModality resolves a modality token case-insensitively.
func ParseModality(s string) (Modality, error) {
	for _, m := range AllModalities {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown modality %q", s)
}

// In reports whether filename contains the modality token, ignoring case.
func (m Modality) In(filename string) bool {
	return strings.Contains(strings.ToLower(filename), strings.ToLower(string(m)))
}

// MatchModality returns the first selected modality whose token appears in
// filename.
func MatchModality(filename string, selected []Modality) (Modality, bool) {
	for _, m := range selected {
		if m.In(filename) {
			return m, true
		}
	}
	return "", false
}

// DetectModality returns the first supported modality found in filename.
func DetectModality(filename string) (Modality, bool) {
	return MatchModality(filename, AllModalities)
}
