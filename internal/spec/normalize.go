package spec

import (
	"path"
	"regexp"
	"strings"
)

// Incoming object keys usually carry the export timestamp that the source
// system appended to the business name, e.g. "fleet status 26-08-2025 21-15-00.xlsx"
// or "vm_analysis_20240815_143022.xlsx". The spec is keyed by the stable
// business name, so those decorations are stripped before lookup.
var fileNamePatterns = []*regexp.Regexp{
	// _YYYYMMDD_HHMMSS job-run suffix
	regexp.MustCompile(`_\d{8}_\d{6}$`),
	// trailing date + time, dash or colon separated
	regexp.MustCompile(`\s*\d{1,2}-\d{1,2}-\d{4}\s+\d{1,2}[-:]\d{1,2}[-:]\d{1,2}$`),
	// trailing date, optionally with a stray run counter (…-2025-1, …-20250)
	regexp.MustCompile(`\s*\d{1,2}[./-]\d{1,2}[./-]\d{2,4}(-\d+|\d*)$`),
	// trailing standalone number or partial date (" 13.7", " 2024")
	regexp.MustCompile(`\s+\d{1,4}([./-]\d{1,2}){0,2}$`),
}

// NormalizeFileName strips the extension and trailing date/timestamp/version
// decorations from a file name, leaving the stable name used as a spec key.
func NormalizeFileName(name string) string {
	clean := path.Base(name)

	switch strings.ToLower(path.Ext(clean)) {
	case ".xlsx", ".xls", ".xlsm", ".csv":
		clean = strings.TrimSuffix(clean, path.Ext(clean))
	}

	// Apply repeatedly: a name can stack several decorations.
	for changed := true; changed; {
		changed = false

		for _, re := range fileNamePatterns {
			if next := re.ReplaceAllString(clean, ""); next != clean {
				clean = next
				changed = true
			}
		}
	}

	return strings.TrimSpace(clean)
}

// Lookup resolves the FileSpec for an incoming file name. Exact key match
// wins; otherwise both sides are normalized and compared, so decorated
// object keys still resolve to their spec entry.
func (s *Spec) Lookup(fileName string) (FileSpec, bool) {
	if fs, ok := s.Files[fileName]; ok {
		return fs, true
	}

	normalized := NormalizeFileName(fileName)

	for key, fs := range s.Files {
		if key == normalized || NormalizeFileName(key) == normalized {
			return fs, true
		}
	}

	return FileSpec{}, false
}
