package dataset

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// SupportedFormats lists the file extensions ReadFile accepts.
var SupportedFormats = []string{".csv", ".zip"}

// ReadFile loads a CSV file, or the first CSV inside a ZIP archive, as a
// text frame. The first record is the header.
func ReadFile(path string) (*Frame, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open dataset")
		}
		defer file.Close()
		return ReadCSV(file)
	case ".zip":
		return readZip(path)
	case ".xls", ".xlsx":
		return nil, errors.NewValueError("dataset.ReadFile", "spreadsheet input is not supported, export it as CSV")
	default:
		return nil, errors.NewValueError("dataset.ReadFile", "unsupported format "+ext+", use .csv or .zip")
	}
}

// ReadCSV parses CSV from r.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse CSV")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "CSV has no header")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return NewFrame(header, records[1:]), nil
}

func readZip(path string) (*Frame, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ZIP archive")
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		if strings.HasPrefix(filepath.Base(f.Name), ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open %s in archive", f.Name)
		}
		defer rc.Close()
		return ReadCSV(rc)
	}
	return nil, errors.NewValueError("dataset.ReadFile", "ZIP contains no CSV file")
}
