package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hydroponics/internal/domain"
)

const (
	colPlantName   = "plant_name"
	colInsertDate  = "insert_date"
	colFertilizer  = "fertilizer"
	colCycleOnMin  = "cycle_on_min"
	colCycleOffMin = "cycle_off_min"
)

// Columns is the fixed export order.
var Columns = []string{colPlantName, colInsertDate, colFertilizer, colCycleOnMin, colCycleOffMin}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func WriteCSV(w io.Writer, recs []domain.PlantRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range recs {
		row := []string{
			r.PlantName,
			r.InsertDate,
			r.Fertilizer,
			strconv.Itoa(r.CycleOnMin),
			strconv.Itoa(r.CycleOffMin),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses header-driven rows. Unknown columns are ignored, missing
// or empty minute columns read as 0 and a missing fertilizer column reads
// as "". Any malformed minute value fails the whole read.
func ReadCSV(r io.Reader) ([]domain.PlantRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.PlantRecord{}, nil
	}
	if err != nil {
		return nil, &domain.ImportError{Line: 1, Err: fmt.Errorf("reading header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.TrimSpace(name)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	recs := make([]domain.PlantRecord, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pErr *csv.ParseError
			if errors.As(err, &pErr) {
				line = pErr.Line
			}
			return nil, &domain.ImportError{Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)

		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		onMin, err := parseMinutes(field(colCycleOnMin))
		if err != nil {
			return nil, &domain.ImportError{Line: line, Column: colCycleOnMin, Value: field(colCycleOnMin), Err: err}
		}
		offMin, err := parseMinutes(field(colCycleOffMin))
		if err != nil {
			return nil, &domain.ImportError{Line: line, Column: colCycleOffMin, Value: field(colCycleOffMin), Err: err}
		}

		recs = append(recs, domain.PlantRecord{
			PlantName:   field(colPlantName),
			InsertDate:  field(colInsertDate),
			Fertilizer:  field(colFertilizer),
			CycleOnMin:  onMin,
			CycleOffMin: offMin,
		})
	}

	return recs, nil
}

func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("minutes must be a whole number")
	}
	if n < 0 {
		return 0, errors.New("minutes must not be negative")
	}
	return n, nil
}

// ImportCSV reads records from path without touching any store; callers
// decide whether to ReplaceAll.
func ImportCSV(path string) ([]domain.PlantRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return ReadCSV(f)
}

// ExportCSV writes to a temporary file next to path and renames it into
// place, so a failed export leaves no partial file behind.
func ExportCSV(path string, recs []domain.PlantRecord) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &domain.IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := WriteCSV(tmp, recs); err != nil {
		cleanup()
		return &domain.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &domain.IOError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &domain.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &domain.IOError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &domain.IOError{Op: "rename", Path: path, Err: err}
	}

	return nil
}
