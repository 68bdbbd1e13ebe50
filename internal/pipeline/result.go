package pipeline

import (
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/store"
)

// TableResult is the outcome of one extraction unit: a destination table or
// a standalone key-value.
type TableResult struct {
	Sheet   string
	Name    string
	Rows    int
	CSVPath string
	Err     error
}

// FileResult aggregates one file's run. Err is set only for fatal failures
// that aborted the file; table-scoped failures live in Tables.
type FileResult struct {
	FileName string
	Status   store.Status
	Tables   []TableResult
	Err      error
}

func (r *FileResult) failedCount() int {
	n := 0

	for _, tr := range r.Tables {
		if tr.Err != nil {
			n++
		}
	}

	return n
}

// deriveStatus folds the unit outcomes into the file status: everything
// succeeded, everything failed, or a mix. A fatal error that aborted the
// file still reports partial_failure when earlier tables already landed,
// since the run did write data.
func (r *FileResult) deriveStatus() {
	failed := r.failedCount()

	if r.Err != nil {
		if failed < len(r.Tables) {
			r.Status = store.StatusPartialFailure
		} else {
			r.Status = store.StatusFailure
		}

		return
	}

	switch {
	case failed == 0:
		r.Status = store.StatusSuccess
	case failed == len(r.Tables):
		r.Status = store.StatusFailure
	default:
		r.Status = store.StatusPartialFailure
	}
}

// Detail renders the failures for the status record, empty on full success.
func (r *FileResult) Detail() string {
	var parts []string

	if r.Err != nil {
		parts = append(parts, r.Err.Error())
	}

	for _, tr := range r.Tables {
		if tr.Err != nil {
			parts = append(parts, fmt.Sprintf("%s/%s: %v", tr.Sheet, tr.Name, tr.Err))
		}
	}

	return strings.Join(parts, "; ")
}
