// Package bids locates anatomical scans in a BIDS dataset.
//
// Only the subset of the layout needed for per-participant reconstruction
// is modelled:
//
//	<root>/participants.tsv
//	<root>/sub-<label>/<session>/anat/*.nii[.gz]
//
// Every subdirectory of the participant directory is treated as a session;
// sessions without an anat directory contribute no scans.
package bids
