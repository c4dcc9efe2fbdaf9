// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionConfig holds the settings for one extraction run.
type ExtractionConfig struct {
	// ManifestPath is the JSON manifest (e.g. ".minecraft/assets/indexes/17.json").
	ManifestPath string `json:"manifest_path" yaml:"manifest_path"`

	// ObjectsDir is the root of the sharded object store
	// (e.g. ".minecraft/assets/objects").
	ObjectsDir string `json:"objects_dir" yaml:"objects_dir"`

	// OutputDir is the root under which manifest paths are recreated.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// VerifyHash digests each object while copying and rejects content whose
	// digest differs from the manifest hash.
	VerifyHash bool `json:"verify_hash" yaml:"verify_hash"`

	// Strict makes a manifest without an "objects" collection a load error
	// instead of an empty manifest.
	Strict bool `json:"strict" yaml:"strict"`

	// Include restricts extraction to paths matching any of these doublestar
	// patterns. Empty means every entry.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// PreserveModTime copies the object's modification time to the destination.
	PreserveModTime bool `json:"preserve_mtime" yaml:"preserve_mtime"`

	// ReportPath, when set, receives a YAML or JSON run report.
	ReportPath string `json:"report,omitempty" yaml:"report,omitempty"`

	// LedgerPath, when set, is the SQLite run history database.
	LedgerPath string `json:"ledger,omitempty" yaml:"ledger,omitempty"`
}
