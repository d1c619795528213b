package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/logging"
	"github.com/andy/casetrail/internal/repository"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoNameColumn      = errors.New("a name column is required")
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ImportResult summarizes a bulk import
type ImportResult struct {
	ChangeID  int64 // zero when nothing was written
	Created   int
	Updated   int
	Unchanged int
}

// ImportService loads objects from spreadsheets. A whole file is written
// under one change: objects are matched by name, created when missing and
// updated otherwise.
type ImportService interface {
	ImportFile(ctx context.Context, path, class string) (*ImportResult, error)
	Import(ctx context.Context, r io.Reader, format, class string) (*ImportResult, error)
	SetAuthor(author Author)
}

type importService struct {
	objects repository.ObjectRepository
	classes *domain.ClassRegistry
	logger  logging.Logger
	signer
}

// NewImportService creates a new import service
func NewImportService(
	objects repository.ObjectRepository,
	classes *domain.ClassRegistry,
	author Author,
	logger logging.Logger,
) ImportService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &importService{
		objects: objects,
		classes: classes,
		logger:  logger,
		signer:  signer{author: author},
	}
}

func (s *importService) ImportFile(ctx context.Context, path, class string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.Import(ctx, f, filepath.Ext(path), class)
}

func (s *importService) Import(ctx context.Context, r io.Reader, format, class string) (*ImportResult, error) {
	def, err := s.classes.Get(class)
	if err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	rows, err := parseTable(payload, format)
	if err != nil {
		return nil, err
	}

	columns, err := mapColumns(def, rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	writes := make([]repository.ObjectWrite, 0, len(rows)-1)
	seen := make(map[string]int)

	for i, row := range rows[1:] {
		line := i + 2
		values := rowValues(columns, row)
		name := values["name"]
		if name == "" {
			return nil, fmt.Errorf("row %d: %w", line, ErrNoNameColumn)
		}
		if first, dup := seen[name]; dup {
			return nil, fmt.Errorf("row %d: %q already appears on row %d", line, name, first)
		}
		seen[name] = line

		write, err := s.planRow(ctx, def, values)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		switch {
		case write == nil:
			result.Unchanged++
		case write.IsCreate():
			result.Created++
			writes = append(writes, *write)
		default:
			result.Updated++
			writes = append(writes, *write)
		}
	}

	if len(writes) == 0 {
		s.logger.Infow("import had nothing to write", "class", class, "unchanged", result.Unchanged)
		return result, nil
	}

	author := s.currentAuthor()
	change := domain.NewChange(author.Login, author.Name, domain.OriginImport)
	if err := s.objects.Apply(ctx, writes, change); err != nil {
		return nil, fmt.Errorf("failed to import: %w", err)
	}
	result.ChangeID = change.ID

	s.logger.Infow("import complete",
		"class", class,
		"change", change.ID,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

// planRow returns the write for one row, or nil when the object already
// holds its values.
func (s *importService) planRow(ctx context.Context, def *domain.ClassDef, values map[string]string) (*repository.ObjectWrite, error) {
	existing, err := s.objects.GetByName(ctx, def.Name, values["name"])
	if err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
		return nil, err
	}

	if existing == nil {
		obj := domain.NewObject(def.Name, values["name"])
		applyValues(obj, values)
		if err := obj.Validate(def); err != nil {
			return nil, err
		}
		if obj.StateHash, err = stateHash(obj); err != nil {
			return nil, err
		}
		return &repository.ObjectWrite{Object: obj}, nil
	}

	after := existing.Clone()
	applyValues(after, values)
	if err := after.Validate(def); err != nil {
		return nil, err
	}

	ops, err := trackChanges(def, existing, after)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return &repository.ObjectWrite{Object: after, Ops: ops}, nil
}

func parseTable(payload []byte, format string) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "csv":
		rows, err = parseCSV(payload)
	case "xlsx":
		rows, err = parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		table = append(table, row)
	}
	if len(table) == 0 {
		return nil, errors.New("no rows found in file")
	}
	return table, nil
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// mapColumns resolves header cells to attribute codes by code or label.
// Unknown columns are ignored; case logs cannot be imported.
func mapColumns(def *domain.ClassDef, header []string) ([]string, error) {
	columns := make([]string, len(header))
	hasName := false

	for i, cell := range header {
		cell = strings.TrimSpace(cell)
		if strings.EqualFold(cell, "name") {
			columns[i] = "name"
			hasName = true
			continue
		}
		for _, att := range def.Attributes {
			if att.IsCaseLog() {
				continue
			}
			if strings.EqualFold(cell, att.Code) || strings.EqualFold(cell, att.Label) {
				columns[i] = att.Code
				break
			}
		}
	}

	if !hasName {
		return nil, ErrNoNameColumn
	}
	return columns, nil
}

// rowValues maps the cells of row to attribute codes. A mapped column the
// row stops short of counts as blank: spreadsheet readers drop trailing
// empty cells.
func rowValues(columns []string, row []string) map[string]string {
	values := make(map[string]string)
	for i, code := range columns {
		if code == "" {
			continue
		}
		if i >= len(row) {
			values[code] = ""
			continue
		}
		values[code] = strings.TrimSpace(row[i])
	}
	return values
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
