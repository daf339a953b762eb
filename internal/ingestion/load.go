package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var supportedExtensions = map[string]bool{
	".xlsx":   true,
	".xls":    true,
	".csv":    true,
	".tsv":    true,
	".json":   true,
	".ndjson": true,
	".jsonl":  true,
}

// jsonWrapperKeys are tried in order when a JSON document is a single
// object carrying its records under a conventional key.
var jsonWrapperKeys = []string{"data", "rows", "items", "results", "records"}

// Load reads one input file into a SourceBatch. The format is chosen by
// extension; an unrecognized extension yields *UnsupportedFormatError.
// Row ordinals are assigned here, once, in file order.
func Load(path string) (*SourceBatch, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		columns []string
		rows    []map[string]string
		err     error
	)
	switch ext {
	case ".xlsx", ".xls":
		columns, rows, err = loadSpreadsheet(path)
	case ".csv":
		columns, rows, err = loadDelimited(path, ',')
	case ".tsv":
		columns, rows, err = loadDelimited(path, '\t')
	case ".json":
		columns, rows, err = loadJSON(path)
	case ".ndjson", ".jsonl":
		columns, rows, err = loadNDJSON(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return nil, err
	}

	batch := &SourceBatch{
		Name:    BatchName(path),
		Path:    path,
		Columns: columns,
		Rows:    make([]Row, 0, len(rows)),
	}
	for i, values := range rows {
		batch.Rows = append(batch.Rows, Row{Ordinal: RowOrdinal(i), Values: values})
	}
	if col, ok := DetectURLColumn(columns); ok {
		batch.URLColumn = col
	}
	return batch, nil
}

// DiscoverInputs returns the supported input files directly under dir, in
// lexical order. Subdirectories are not descended into.
func DiscoverInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func loadSpreadsheet(path string) ([]string, []map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to open workbook", Cause: err}
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, &ParseError{Path: path, Message: "workbook has no sheets"}
	}

	// GetRows returns ragged rows; tableFromRecords pads them to the
	// header width.
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to read sheet rows", Cause: err}
	}
	return tableFromRecords(path, records)
}

func loadDelimited(path string, comma rune) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to open file", Cause: err}
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to read delimited text", Cause: err}
	}
	return tableFromRecords(path, records)
}

func loadJSON(path string) ([]string, []map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to read file", Cause: err}
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil, &ParseError{Path: path, Message: "file is empty"}
	}

	switch trimmed[0] {
	case '[':
		objs, err := decodeObjectList(json.NewDecoder(bytes.NewReader(trimmed)))
		if err != nil {
			return nil, nil, &ParseError{Path: path, Message: "failed to decode JSON array", Cause: err}
		}
		columns, rows := tableFromObjects(objs)
		return columns, rows, nil
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &top); err != nil {
			return nil, nil, &ParseError{Path: path, Message: "invalid JSON", Cause: err}
		}
		for _, key := range jsonWrapperKeys {
			raw, ok := top[key]
			if !ok {
				continue
			}
			rawTrimmed := bytes.TrimLeft(raw, " \t\r\n")
			if len(rawTrimmed) == 0 || rawTrimmed[0] != '[' {
				continue
			}
			objs, err := decodeObjectList(json.NewDecoder(bytes.NewReader(rawTrimmed)))
			if err != nil {
				return nil, nil, &ParseError{Path: path, Message: fmt.Sprintf("failed to decode list under %q", key), Cause: err}
			}
			columns, rows := tableFromObjects(objs)
			return columns, rows, nil
		}
		// No recognized wrapper key: treat the object as a single record.
		obj, err := decodeObject(json.NewDecoder(bytes.NewReader(trimmed)))
		if err != nil {
			return nil, nil, &ParseError{Path: path, Message: "failed to decode JSON object", Cause: err}
		}
		columns, rows := tableFromObjects([]*orderedObject{obj})
		return columns, rows, nil
	default:
		return nil, nil, &ParseError{Path: path, Message: "top-level JSON must be an array or object"}
	}
}

func loadNDJSON(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to open file", Cause: err}
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var objs []*orderedObject
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		obj, err := decodeObject(json.NewDecoder(strings.NewReader(text)))
		if err != nil {
			return nil, nil, &ParseError{Path: path, Message: fmt.Sprintf("invalid JSON on line %d", line), Cause: err}
		}
		objs = append(objs, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &ParseError{Path: path, Message: "failed to scan file", Cause: err}
	}

	columns, rows := tableFromObjects(objs)
	return columns, rows, nil
}

// tableFromRecords converts a header-plus-data record list into named rows.
// Data rows shorter than the header are padded with empty values; cells
// beyond the header width are dropped.
func tableFromRecords(path string, records [][]string) ([]string, []map[string]string, error) {
	if len(records) == 0 {
		return nil, nil, &ParseError{Path: path, Message: "input has no header row"}
	}
	columns := normalizeHeader(records[0])
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				values[col] = record[i]
			} else {
				values[col] = ""
			}
		}
		rows = append(rows, values)
	}
	return columns, rows, nil
}

// normalizeHeader trims column names and makes them unique so they can key
// row maps. Blank names become column_<position>; repeats get a numeric
// suffix.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		columns[i] = name
	}
	return columns
}

// orderedObject is one decoded JSON object with its key order preserved.
// Nested objects are flattened into dot-joined key paths.
type orderedObject struct {
	keys   []string
	values map[string]string
}

func decodeObject(dec *json.Decoder) (*orderedObject, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	obj := &orderedObject{values: make(map[string]string)}
	if err := decodeMembers(dec, obj, ""); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeMembers consumes the members and closing brace of an already-opened
// object, recursing into nested objects with a dotted key prefix.
func decodeMembers(dec *json.Decoder, obj *orderedObject, prefix string) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		key = strings.TrimSpace(key)
		if prefix != "" {
			key = prefix + "." + key
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value := bytes.TrimSpace(raw)
		if len(value) > 0 && value[0] == '{' {
			sub := json.NewDecoder(bytes.NewReader(value))
			if _, err := sub.Token(); err != nil {
				return err
			}
			if err := decodeMembers(sub, obj, key); err != nil {
				return err
			}
			continue
		}
		obj.keys = append(obj.keys, key)
		obj.values[key] = scalarString(value)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeObjectList(dec *json.Decoder) ([]*orderedObject, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}
	var objs []*orderedObject
	for dec.More() {
		obj, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(objs), err)
		}
		objs = append(objs, obj)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return objs, nil
}

// scalarString renders a JSON value as a cell string. Strings are unquoted,
// null becomes empty, numbers and booleans keep their literal text, and
// arrays are kept as compact JSON.
func scalarString(raw []byte) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if raw[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}

// tableFromObjects unions object keys in first-seen order into the column
// list and materializes one row per object.
func tableFromObjects(objs []*orderedObject) ([]string, []map[string]string) {
	var columns []string
	seen := make(map[string]bool)
	for _, obj := range objs {
		for _, key := range obj.keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	rows := make([]map[string]string, 0, len(objs))
	for _, obj := range objs {
		values := make(map[string]string, len(columns))
		for _, col := range columns {
			values[col] = obj.values[col]
		}
		rows = append(rows, values)
	}
	return columns, rows
}
