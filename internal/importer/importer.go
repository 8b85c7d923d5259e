// Package importer reads item and container lists from CSV or Excel files
// and writes the current arrangement back out as CSV. Invalid rows are
// reported individually and do not stop the import.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/stowage/internal/geometry"
	"github.com/eugenenazirov/stowage/internal/planner"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyFile is returned for input without a header row.
	ErrEmptyFile = errors.New("file has no header row")
)

// Item and container column headers.
const (
	ColItemID        = "Item ID"
	ColName          = "Name"
	ColWidth         = "Width"
	ColDepth         = "Depth"
	ColHeight        = "Height"
	ColMass          = "Mass"
	ColPriority      = "Priority"
	ColExpiryDate    = "Expiry Date"
	ColUsageLimit    = "Usage Limit"
	ColPreferredZone = "Preferred Zone"
	ColContainerID   = "Container ID"
	ColZone          = "Zone"
	ColCoordinates   = "Coordinates"
)

var (
	itemColumns      = []string{ColItemID, ColName, ColWidth, ColDepth, ColHeight, ColMass, ColPriority}
	containerColumns = []string{ColContainerID, ColZone, ColWidth, ColDepth, ColHeight}
)

// RowError reports a rejected data row. Row numbers count data rows from 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ItemsResult holds the outcome of an item import.
type ItemsResult struct {
	Items  []planner.Item
	Errors []RowError
}

// ContainersResult holds the outcome of a container import.
type ContainersResult struct {
	Containers []planner.Container
	Errors     []RowError
}

// Format is the detected encoding of an uploaded file.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// DetectFormat recognises XLSX workbooks by their zip signature and treats
// everything else as CSV.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	return FormatCSV
}

// ParseItems decodes an item list in either supported format.
func ParseItems(data []byte) (ItemsResult, error) {
	rows, err := readRows(data)
	if err != nil {
		return ItemsResult{}, err
	}
	return itemsFromRows(rows)
}

// ParseContainers decodes a container list in either supported format.
func ParseContainers(data []byte) (ContainersResult, error) {
	rows, err := readRows(data)
	if err != nil {
		return ContainersResult{}, err
	}
	return containersFromRows(rows)
}

func readRows(data []byte) ([][]string, error) {
	if DetectFormat(data) == FormatXLSX {
		return readXLSX(bytes.NewReader(data))
	}
	return readCSV(bytes.NewReader(data))
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// columns maps header names to indices, matching case-insensitively.
type columns map[string]int

func headerIndex(header []string, required []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	idx, ok := c[strings.ToLower(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

type itemRow struct {
	ID         string  `validate:"required"`
	Name       string  `validate:"required"`
	Width      float64 `validate:"gt=0"`
	Depth      float64 `validate:"gt=0"`
	Height     float64 `validate:"gt=0"`
	Mass       float64 `validate:"gte=0"`
	Priority   int     `validate:"min=0,max=100"`
	UsageLimit *int    `validate:"omitempty,gte=0"`
}

type containerRow struct {
	ID     string  `validate:"required"`
	Zone   string  `validate:"required"`
	Width  float64 `validate:"gt=0"`
	Depth  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`
}

var validate = validator.New()

func itemsFromRows(rows [][]string) (ItemsResult, error) {
	if len(rows) == 0 {
		return ItemsResult{}, ErrEmptyFile
	}
	cols, err := headerIndex(rows[0], itemColumns)
	if err != nil {
		return ItemsResult{}, err
	}

	res := ItemsResult{Items: []planner.Item{}, Errors: []RowError{}}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		it, err := parseItem(cols, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

func parseItem(cols columns, row []string) (planner.Item, error) {
	var (
		r   itemRow
		err error
	)
	r.ID = normalizeItemID(cols.get(row, ColItemID))
	r.Name = cols.get(row, ColName)
	if r.Width, err = parseFloat(cols, row, ColWidth); err != nil {
		return planner.Item{}, err
	}
	if r.Depth, err = parseFloat(cols, row, ColDepth); err != nil {
		return planner.Item{}, err
	}
	if r.Height, err = parseFloat(cols, row, ColHeight); err != nil {
		return planner.Item{}, err
	}
	if r.Mass, err = parseFloat(cols, row, ColMass); err != nil {
		return planner.Item{}, err
	}
	if r.Priority, err = strconv.Atoi(cols.get(row, ColPriority)); err != nil {
		return planner.Item{}, fmt.Errorf("%s: %w", ColPriority, err)
	}
	if raw := cols.get(row, ColUsageLimit); raw != "" && !strings.EqualFold(raw, "n/a") {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return planner.Item{}, fmt.Errorf("%s: %w", ColUsageLimit, err)
		}
		r.UsageLimit = &n
	}
	if err := validate.Struct(r); err != nil {
		return planner.Item{}, describe(err)
	}

	it := planner.Item{
		ID:            r.ID,
		Name:          r.Name,
		Size:          geometry.Vec3{W: r.Width, D: r.Depth, H: r.Height},
		Mass:          r.Mass,
		Priority:      r.Priority,
		PreferredZone: cols.get(row, ColPreferredZone),
	}
	if r.UsageLimit != nil {
		limit, left := *r.UsageLimit, *r.UsageLimit
		it.UsageLimit, it.UsesRemaining = &limit, &left
	}
	if raw := cols.get(row, ColExpiryDate); raw != "" && !strings.EqualFold(raw, "n/a") {
		exp, err := ParseExpiry(raw)
		if err != nil {
			return planner.Item{}, err
		}
		it.Expiry = &exp
	}
	return it, nil
}

func containersFromRows(rows [][]string) (ContainersResult, error) {
	if len(rows) == 0 {
		return ContainersResult{}, ErrEmptyFile
	}
	cols, err := headerIndex(rows[0], containerColumns)
	if err != nil {
		return ContainersResult{}, err
	}

	res := ContainersResult{Containers: []planner.Container{}, Errors: []RowError{}}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		c, err := parseContainer(cols, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		res.Containers = append(res.Containers, c)
	}
	return res, nil
}

func parseContainer(cols columns, row []string) (planner.Container, error) {
	var (
		r   containerRow
		err error
	)
	r.ID = cols.get(row, ColContainerID)
	r.Zone = cols.get(row, ColZone)
	if r.Width, err = parseFloat(cols, row, ColWidth); err != nil {
		return planner.Container{}, err
	}
	if r.Depth, err = parseFloat(cols, row, ColDepth); err != nil {
		return planner.Container{}, err
	}
	if r.Height, err = parseFloat(cols, row, ColHeight); err != nil {
		return planner.Container{}, err
	}
	if err := validate.Struct(r); err != nil {
		return planner.Container{}, describe(err)
	}
	return planner.Container{
		ID:   r.ID,
		Zone: r.Zone,
		Size: geometry.Vec3{W: r.Width, D: r.Depth, H: r.Height},
	}, nil
}

func parseFloat(cols columns, row []string, name string) (float64, error) {
	v, err := strconv.ParseFloat(cols.get(row, name), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// normalizeItemID pads purely numeric ids to three digits.
func normalizeItemID(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "0") {
		return raw
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return raw
	}
	if len(raw) < 3 {
		return strings.Repeat("0", 3-len(raw)) + raw
	}
	return raw
}

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseExpiry accepts RFC 3339 timestamps, naive timestamps (taken as UTC)
// and bare dates, which expire at the end of that day in UTC.
func ParseExpiry(raw string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: unrecognised date %q", ColExpiryDate, raw)
	}
	return d.Add(24*time.Hour - time.Second), nil
}

func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s %s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
