package logfile

import (
	"context"
	"strings"

	"flowtail/internal/metadata"
)

// BlobLoader loads a raw blob from the workflow datastore, given the
// location reference recorded in task metadata.
type BlobLoader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// fetchSize returns the current upstream size of the task's log.
func fetchSize(ctx context.Context, client metadata.Client, task *metadata.TaskInfo, logtype string) (int64, error) {
	return client.LogSize(ctx, task, StreamName(logtype))
}

// fetchContent returns the task's log as normalized records. Two source
// generations exist: legacy runtimes stored the whole log as one blob and
// recorded its location in task metadata (no per-line timestamps); modern
// runtimes serve timestamped lines from the metadata service.
func fetchContent(ctx context.Context, client metadata.Client, blobs BlobLoader, task *metadata.TaskInfo, logtype string) ([]Record, error) {
	stream := StreamName(logtype)

	if location := task.Metadata["log_location_"+stream]; location != "" {
		blob, err := blobs.Load(ctx, location)
		if err != nil {
			return nil, err
		}
		lines := strings.Split(string(blob), "\n")
		records := make([]Record, len(lines))
		for i, line := range lines {
			records[i] = Record{Line: line}
		}
		return records, nil
	}

	lines, err := client.LogLines(ctx, task, stream)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(lines))
	for i, l := range lines {
		records[i] = Record{Timestamp: epochMillis(l.Timestamp), Line: l.Line}
	}
	return records, nil
}
