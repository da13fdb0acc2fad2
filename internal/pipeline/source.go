package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/linreg/internal/extract"
	"github.com/ppiankov/linreg/internal/model"
)

// SourceKind says where a dataset comes from
type SourceKind string

const (
	SourceInline SourceKind = "inline" // x and y lists given directly
	SourceFile   SourceKind = "file"   // local CSV or HTML file
	SourceURL    SourceKind = "url"    // remote CSV or HTML page
)

// Format of a file or remote source body
type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Source describes one dataset to analyse
type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location,omitempty"` // File path or URL

	// Inline lists, split with extract.SplitList
	XList string `json:"x_list,omitempty"`
	YList string `json:"y_list,omitempty"`

	XColumn    string `json:"x_column,omitempty"`
	YColumn    string `json:"y_column,omitempty"`
	TableIndex int    `json:"table_index,omitempty"` // HTML sources only
	Format     Format `json:"format,omitempty"`
}

// Label is a short human-readable name for the source
func (s Source) Label() string {
	switch s.Kind {
	case SourceInline:
		return "inline data"
	case SourceFile:
		return filepath.Base(s.Location)
	default:
		return s.Location
	}
}

// ParseSource parses a manifest line: LOCATION [x=COL] [y=COL] [table=N] [format=csv|html].
// Locations starting with http:// or https:// are remote; anything else is a file.
func ParseSource(line string) (Source, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Source{}, fmt.Errorf("empty source")
	}

	src := Source{Kind: SourceFile, Location: fields[0]}
	if isRemote(fields[0]) {
		src.Kind = SourceURL
	}

	for _, opt := range fields[1:] {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return Source{}, fmt.Errorf("invalid source option %q (want key=value)", opt)
		}
		switch strings.ToLower(key) {
		case "x":
			src.XColumn = value
		case "y":
			src.YColumn = value
		case "table":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return Source{}, fmt.Errorf("invalid table index %q", value)
			}
			src.TableIndex = n
		case "format":
			f := Format(strings.ToLower(value))
			if f != FormatCSV && f != FormatHTML {
				return Source{}, fmt.Errorf("invalid format %q (want csv or html)", value)
			}
			src.Format = f
		default:
			return Source{}, fmt.Errorf("unknown source option %q", key)
		}
	}

	return src, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Loaded is a source turned into raw columns
type Loaded struct {
	Columns  *extract.Columns
	Subject  string
	Location string
	Meta     *model.FetchMeta
}

// Loader reads sources into raw string columns
type Loader struct {
	fetcher *Fetcher
}

// NewLoader creates a loader. fetcher may be nil when no remote sources are used.
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load reads src. noCache bypasses the fetch cache for remote sources.
func (l *Loader) Load(ctx context.Context, src Source, noCache bool) (*Loaded, error) {
	switch src.Kind {
	case SourceInline:
		return &Loaded{
			Columns: &extract.Columns{
				XName: "x",
				YName: "y",
				X:     extract.SplitList(src.XList),
				Y:     extract.SplitList(src.YList),
			},
			Subject:  "inline data",
			Location: "inline",
		}, nil

	case SourceFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.Location, err)
		}
		format := src.Format
		if format == FormatAuto {
			format = detectFormat("", src.Location, data)
		}
		cols, err := parseBody(string(data), format, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Location, err)
		}
		return &Loaded{
			Columns:  cols,
			Subject:  strings.TrimSuffix(filepath.Base(src.Location), filepath.Ext(src.Location)),
			Location: src.Location,
		}, nil

	case SourceURL:
		if l.fetcher == nil {
			return nil, fmt.Errorf("remote sources are not enabled")
		}
		fetch := l.fetcher.FetchWithRetry
		if noCache {
			fetch = l.fetcher.FetchFresh
		}
		result, err := fetch(ctx, src.Location)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src.Location, err)
		}
		format := src.Format
		if format == FormatAuto {
			format = detectFormat(result.Meta.ContentType, result.FinalURL, []byte(result.Body))
		}
		cols, err := parseBody(result.Body, format, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Location, err)
		}
		meta := result.Meta
		return &Loaded{
			Columns:  cols,
			Subject:  result.Subject,
			Location: result.FinalURL,
			Meta:     &meta,
		}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func parseBody(body string, format Format, src Source) (*extract.Columns, error) {
	if format == FormatHTML {
		return extract.ReadHTMLTable(body, src.TableIndex, src.XColumn, src.YColumn)
	}
	return extract.ReadCSVColumns(strings.NewReader(body), src.XColumn, src.YColumn)
}

// detectFormat decides between CSV and HTML from content type, extension and body
func detectFormat(contentType, location string, body []byte) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return FormatHTML
	case strings.Contains(ct, "csv"), strings.Contains(ct, "tab-separated"):
		return FormatCSV
	}

	path := location
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	}

	trimmed := strings.TrimSpace(string(body[:min(len(body), 512)]))
	if strings.HasPrefix(trimmed, "<") {
		return FormatHTML
	}
	return FormatCSV
}
