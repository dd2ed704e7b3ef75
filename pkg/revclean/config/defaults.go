// Package config loads revclean settings from a YAML file, REVCLEAN_
// environment variables and built-in defaults.
package config

import "github.com/jamesainslie/revclean/pkg/revclean/types"

// Default configuration values.
const (
	// DefaultManifest is resolved against the cleaned directory.
	DefaultManifest = types.DefaultManifestName

	// DefaultRetentionDays is how long journal records are kept.
	DefaultRetentionDays = 30

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSizeMB and DefaultLogMaxBackups bound the log file.
	DefaultLogMaxSizeMB  = 5
	DefaultLogMaxBackups = 3

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REVCLEAN"
)

// defaults maps configuration keys to their built-in values.
func defaults() map[string]any {
	opts := types.DefaultOptions()
	return map[string]any{
		"manifest":                DefaultManifest,
		"keep.original":           opts.KeepOriginalFiles,
		"keep.renamed":            opts.KeepRenamedFiles,
		"keep.sourcemaps":         opts.KeepSourceMapFiles,
		"keep.manifest":           opts.KeepManifestFile,
		"emit":                    opts.EmitChunks,
		"delete.dry_run":          false,
		"delete.force":            false,
		"delete.trash":            false,
		"delete.prune_empty_dirs": false,
		"exclude":                 []string{},
		"journal.enabled":         true,
		"journal.path":            DefaultJournalPath(),
		"journal.retention_days":  DefaultRetentionDays,
		"logging.level":           DefaultLogLevel,
		"logging.path":            "",
		"logging.max_size_mb":     DefaultLogMaxSizeMB,
		"logging.max_backups":     DefaultLogMaxBackups,
	}
}
