package table

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// ReadCSV reads a comma-separated file with a header row into a table of
// String columns. Empty fields become missing values.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := New()
	cols := make([]*Column, len(header))
	for i, name := range header {
		cols[i] = &Column{Name: name, Kind: String}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		for i, field := range record {
			if field == "" {
				cols[i].Values = append(cols[i].Values, Missing(String))
			} else {
				cols[i].Values = append(cols[i].Values, NewString(field))
			}
		}
	}

	for _, c := range cols {
		if err := t.SetColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadJSONL reads line-delimited JSON objects into a table of String
// columns. Column order follows first appearance; keys absent from a
// line become missing values.
func ReadJSONL(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var cols []*Column
	index := make(map[string]int)
	rows := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", rows+1, err)
		}

		// Register new columns, backfilling earlier rows as missing.
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				c := &Column{Name: k, Kind: String}
				for i := 0; i < rows; i++ {
					c.Values = append(c.Values, Missing(String))
				}
				index[k] = len(cols)
				cols = append(cols, c)
			}
		}

		for _, c := range cols {
			raw, ok := obj[c.Name]
			if !ok || raw == nil {
				c.Values = append(c.Values, Missing(String))
				continue
			}
			c.Values = append(c.Values, NewString(jsonText(raw)))
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}

	t := New()
	for _, c := range cols {
		if err := t.SetColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// jsonText renders a decoded JSON scalar as text.
func jsonText(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// ReadFile reads an input file in the configured format ("csv" or
// "jsonl").
func ReadFile(path, format string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if format == "jsonl" {
		return ReadJSONL(f)
	}
	return ReadCSV(f)
}

// WriteCSV writes the table as CSV with a header row. Missing values
// are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns() {
			record[j] = c.Values[i].Text()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
