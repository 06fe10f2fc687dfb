package logfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"flowtail/internal/action"
	"flowtail/internal/metadata"
	"flowtail/internal/taskref"
)

// Request holds the caller-supplied parameters for one log view.
type Request struct {
	Task    taskref.TaskRef `json:"task"`
	LogType string          `json:"logtype"`
	Limit   int             `json:"limit"`
	Page    int             `json:"page"`
	Reverse bool            `json:"reverse_order"`
	Raw     bool            `json:"raw_log"`

	// Invalidate forces a refetch regardless of the staleness check. It
	// travels on the request envelope and never reaches key derivation.
	Invalidate bool `json:"invalidate_cache"`
}

// message is the wire form of a Request passed to Execute. It omits
// Invalidate, which the dispatcher carries separately.
type message struct {
	Task    taskref.TaskRef `json:"task"`
	LogType string          `json:"logtype"`
	Limit   int             `json:"limit"`
	Page    int             `json:"page"`
	Reverse bool            `json:"reverse_order"`
	Raw     bool            `json:"raw_log"`
}

// GetLogFile retrieves a task's log and serves a paginated view of it,
// caching both the raw log file and the formatted page.
type GetLogFile struct {
	req  Request
	meta metadata.Client
	blob BlobLoader
	log  *slog.Logger
}

var _ action.Action = (*GetLogFile)(nil)

// NewGetLogFile creates the action for one request. Zero-value request
// fields get their defaults: stdout, unlimited, first page.
func NewGetLogFile(req Request, meta metadata.Client, blob BlobLoader, log *slog.Logger) *GetLogFile {
	if req.LogType == "" {
		req.LogType = LogTypeStdout
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 0 {
		req.Limit = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &GetLogFile{req: req, meta: meta, blob: blob, log: log}
}

// FormatRequest derives the message and cache keys. Fails before any I/O
// when the task reference is missing identity fields.
func (a *GetLogFile) FormatRequest() (*action.RequestSpec, error) {
	r := a.req
	logKey, err := CacheKey(r.Task, r.LogType)
	if err != nil {
		return nil, err
	}
	resultKey, err := ResultKey(r.Task, r.LogType, r.Limit, r.Page, r.Reverse, r.Raw)
	if err != nil {
		return nil, err
	}
	streamKey, err := StreamKey(r.Task, r.LogType, r.Limit, r.Page, r.Reverse, r.Raw)
	if err != nil {
		return nil, err
	}

	msg, err := json.Marshal(message{
		Task:    r.Task,
		LogType: r.LogType,
		Limit:   r.Limit,
		Page:    r.Page,
		Reverse: r.Reverse,
		Raw:     r.Raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return &action.RequestSpec{
		Message:      msg,
		PrefetchKeys: []string{logKey, resultKey},
		StreamKey:    streamKey,
		AwaitKeys:    []string{streamKey, resultKey},
		Invalidate:   r.Invalidate,
	}, nil
}

// Execute refreshes the cached log file if it is stale and (re)computes
// the requested page. Returns the complete set of entries to persist.
// Fetch failures are relayed on the stream and fail the call; no partial
// entries are returned.
func (a *GetLogFile) Execute(ctx context.Context, msg json.RawMessage, existing map[string][]byte, stream *action.Stream, invalidate bool) (map[string][]byte, error) {
	defer stream.Close()

	var m message
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	pathspec, err := m.Task.Pathspec()
	if err != nil {
		return nil, err
	}
	logKey, err := CacheKey(m.Task, m.LogType)
	if err != nil {
		return nil, err
	}
	resultKey, err := ResultKey(m.Task, m.LogType, m.Limit, m.Page, m.Reverse, m.Raw)
	if err != nil {
		return nil, err
	}

	// Size recorded at the previous fetch, if the raw log is cached.
	var previousSize *int64
	if data, ok := existing[logKey]; ok {
		var cached File
		if err := json.Unmarshal(data, &cached); err == nil {
			previousSize = &cached.Size
		} else {
			a.log.Warn("discarding unreadable cached log file", "key", logKey, "error", err)
		}
	}

	task, err := a.meta.Task(ctx, pathspec, m.Task.AttemptID)
	if err != nil {
		stream.Error(errorID(err), err)
		return nil, err
	}

	currentSize, err := fetchSize(ctx, a.meta, task, m.LogType)
	if err != nil {
		stream.Error(errorID(err), err)
		return nil, err
	}

	// Logs are append-only, so a size match means unchanged content.
	changed := invalidate || previousSize == nil || *previousSize != currentSize

	results := make(map[string][]byte, len(existing)+2)
	if changed {
		content, err := fetchContent(ctx, a.meta, a.blob, task, m.LogType)
		if err != nil {
			stream.Error(errorID(err), err)
			return nil, err
		}
		data, err := json.Marshal(File{Size: currentSize, Content: content})
		if err != nil {
			return nil, fmt.Errorf("marshal log file: %w", err)
		}
		results[logKey] = data
	} else {
		maps.Copy(results, existing)
	}

	if _, ok := results[resultKey]; changed || !ok {
		var cached File
		if err := json.Unmarshal(results[logKey], &cached); err != nil {
			return nil, fmt.Errorf("unmarshal cached log file: %w", err)
		}
		data, err := json.Marshal(Paginate(cached.Content, m.Page, m.Limit, m.Reverse, m.Raw))
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		results[resultKey] = data
	}

	return results, nil
}

// Response returns the paginated result from the persisted entries.
func (a *GetLogFile) Response(persisted map[string][]byte) (json.RawMessage, error) {
	for key, value := range persisted {
		if strings.HasPrefix(key, "log:result:") {
			return json.RawMessage(value), nil
		}
	}
	return nil, errors.New("no result entry in cache response")
}

func errorID(err error) string {
	if errors.Is(err, metadata.ErrTaskUnavailable) {
		return "task-unavailable"
	}
	return "log-fetch-failed"
}
