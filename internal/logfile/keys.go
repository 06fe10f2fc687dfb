// Package logfile implements cached retrieval of task log files: fetch a
// task's log from the metadata service or legacy datastore, cache the raw
// content, and serve paginated views under deterministic keys.
package logfile

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"flowtail/internal/taskref"
)

// Log types accepted in requests. The values mirror the metadata field
// names legacy runtimes used for log locations.
const (
	LogTypeStdout = "log_location_stdout"
	LogTypeStderr = "log_location_stderr"
)

// StreamName maps a log type to its stream name.
func StreamName(logtype string) string {
	if logtype == LogTypeStderr {
		return "stderr"
	}
	return "stdout"
}

// CacheKey returns the cache key for a task's raw log file. It depends on
// the task identity and log type only, never on viewing parameters, so
// every view of the same log shares one fetched copy.
func CacheKey(task taskref.TaskRef, logtype string) (string, error) {
	pathspec, err := task.Pathspec()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("log:file:%s.%s.%s", pathspec, task.Attempt(), logtype), nil
}

// LookupID returns a stable digest of the log cache key plus all viewing
// parameters. Distinct parameters yield distinct ids.
func LookupID(task taskref.TaskRef, logtype string, limit, page int, reverse, raw bool) (string, error) {
	cacheKey, err := CacheKey(task, logtype)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(fmt.Appendf(nil, "%s_%d_%d_%t_%t", cacheKey, limit, page, reverse, raw))
	return hex.EncodeToString(sum[:]), nil
}

// ResultKey returns the cache key for a paginated result.
func ResultKey(task taskref.TaskRef, logtype string, limit, page int, reverse, raw bool) (string, error) {
	id, err := LookupID(task, logtype, limit, page, reverse, raw)
	if err != nil {
		return "", err
	}
	return "log:result:" + id, nil
}

// StreamKey returns the event stream key for one parameterized request.
func StreamKey(task taskref.TaskRef, logtype string, limit, page int, reverse, raw bool) (string, error) {
	id, err := LookupID(task, logtype, limit, page, reverse, raw)
	if err != nil {
		return "", err
	}
	return "log:stream:" + id, nil
}
