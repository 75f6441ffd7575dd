package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedFormat is returned for files that are not CSV, TSV or XLSX.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Loader reads datasets from files or databases.
type Loader struct {
	Options LoadOptions
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Sheet and SheetIndex select the XLSX worksheet.
	Sheet      string
	SheetIndex int
	Log        logrus.FieldLogger
}

// NewLoader returns a loader with default options and a discarding logger.
func NewLoader(log logrus.FieldLogger) *Loader {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Loader{Options: DefaultLoadOptions(), SheetIndex: 1, Log: log}
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	switch formatOf(path) {
	case "csv", "tsv", "xlsx":
		return true
	}
	return false
}

// LoadFile reads a dataset from disk. Files may be gzip (.gz) or zstd (.zst)
// compressed.
func (l *Loader) LoadFile(path string) (*Dataset, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return l.Load(f, path)
}

// Load reads a dataset from r; name supplies the extension and display name.
func (l *Loader) Load(r io.Reader, name string) (*Dataset, error) {
	rc, err := decompress(r, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var header []string
	var rows [][]string
	switch formatOf(name) {
	case "csv", "tsv":
		delim := l.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(name)
		}
		header, rows, err = ReadCSV(rc, delim)
	case "xlsx":
		header, rows, err = ReadXLSX(rc, name, l.Sheet, l.SheetIndex)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
	if err != nil {
		return nil, err
	}
	return l.build(header, rows, filepath.Base(name)), nil
}

// LoadSQL reads a dataset from a database query.
func (l *Loader) LoadSQL(ctx context.Context, driver, dsn, query string) (*Dataset, error) {
	header, rows, err := ReadSQL(ctx, driver, dsn, query)
	if err != nil {
		return nil, err
	}
	return l.build(header, rows, driver+" query"), nil
}

func (l *Loader) build(header []string, rows [][]string, name string) *Dataset {
	ds := FromRecords(header, rows, l.Options).WithName(name)
	l.Log.WithFields(logrus.Fields{
		"source":      name,
		"dataset_id":  ds.ID(),
		"rows":        len(rows),
		"students":    ds.Len(),
		"subjects":    strings.Join(ds.Subjects(), ","),
		"fingerprint": fmt.Sprintf("%016x", ds.Fingerprint()),
	}).Debug("dataset loaded")
	if ds.Len() > 0 && ds.NumSubjects() == 0 {
		l.Log.WithField("source", name).Warn("no subject columns detected")
	}
	return ds
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(trimCompression(path))), ".")
}

func trimCompression(path string) string {
	lower := strings.ToLower(path)
	for _, suf := range []string{".gz", ".zst"} {
		if strings.HasSuffix(lower, suf) {
			return path[:len(path)-len(suf)]
		}
	}
	return path
}

func decompress(r io.Reader, name string) (io.ReadCloser, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		return zr, nil
	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
