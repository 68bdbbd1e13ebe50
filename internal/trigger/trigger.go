// Package trigger resolves which object to process from the CloudEvents
// environment a storage-bucket notification delivers to the job.
package trigger

import (
	"encoding/json"
	"fmt"
	"os"
)

// Event identifies the triggering upload and the job run handling it.
type Event struct {
	// ObjectKey is the bucket key of the uploaded file.
	ObjectKey string
	Job       string
	JobRun    string
}

// Resolve reads the triggering event from the environment. CE_DATA carries
// the notification payload with the object key; CE_SUBJECT is the fallback
// some emitters use instead. The second return is false when the process
// was not started by an event.
func Resolve(getenv func(string) string) (Event, bool, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	ev := Event{
		Job:    getenv("CE_JOB"),
		JobRun: getenv("CE_JOBRUN"),
	}

	if data := getenv("CE_DATA"); data != "" {
		var payload struct {
			Key string `json:"key"`
		}

		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return Event{}, false, fmt.Errorf("parsing CE_DATA: %w", err)
		}

		if payload.Key == "" {
			return Event{}, false, fmt.Errorf("CE_DATA has no object key: %s", data)
		}

		ev.ObjectKey = payload.Key

		return ev, true, nil
	}

	if subject := getenv("CE_SUBJECT"); subject != "" {
		ev.ObjectKey = subject
		return ev, true, nil
	}

	return Event{}, false, nil
}
