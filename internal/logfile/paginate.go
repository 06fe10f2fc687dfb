package logfile

import "strings"

// Row is one formatted log line in a paginated result. Row numbers are
// assigned in original fetch order and survive reversal.
type Row struct {
	Row       int    `json:"row"`
	Timestamp *int64 `json:"timestamp"`
	Line      string `json:"line"`
}

// Result is a formatted page of log content, stored under the log:result:
// key. Content is either []Row or, in raw mode, the whole log as one
// string.
type Result struct {
	Content any `json:"content"`
	Pages   int `json:"pages"`
}

// Paginate formats records into a page of rows, or the full raw text.
//
// Raw mode returns the entire log joined with newlines in original order
// and reports a single page; limit, page and reverse are ignored. A page
// request beyond the last page returns empty content with the accurate
// page count rather than an error. Reversal happens before slicing, so
// page 1 of a reversed log holds the newest lines.
func Paginate(records []Record, page, limit int, reverse, raw bool) Result {
	if raw {
		lines := make([]string, len(records))
		for i, r := range records {
			lines[i] = r.Line
		}
		return Result{Content: strings.Join(lines, "\n"), Pages: 1}
	}

	if page < 1 {
		page = 1
	}
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{Row: i, Timestamp: r.Timestamp, Line: r.Line}
	}

	pages := 1
	if limit > 0 {
		pages = max(len(rows)/limit, 1)
	}
	if page > pages {
		return Result{Content: []Row{}, Pages: pages}
	}

	if reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	if limit > 0 {
		offset := limit * (page - 1)
		if offset > len(rows) {
			offset = len(rows)
		}
		rows = rows[offset:]
		if len(rows) > limit {
			rows = rows[:limit]
		}
	}

	return Result{Content: rows, Pages: pages}
}
