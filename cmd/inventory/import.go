package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matst80/slask-fordon/pkg/types"
)

// readItems reads a json array of items, or a semicolon separated csv file
// whose header names the item fields.
func readItems(path string) ([]types.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCsvItems(f)
	}
	items := make([]types.Item, 0)
	if err = json.NewDecoder(f).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

func readCsvItems(r io.Reader) ([]types.Item, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return []types.Item{}, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, fmt.Errorf("csv header has no id column")
	}

	items := make([]types.Item, 0, len(records)-1)
	for line, record := range records[1:] {
		get := func(name string) string {
			if i, ok := columns[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		number := func(name string) (int, error) {
			v := get(name)
			if v == "" {
				return 0, nil
			}
			return strconv.Atoi(v)
		}
		item := types.Item{
			Id:          get("id"),
			Domain:      types.Domain(get("domain")),
			Title:       get("title"),
			Description: get("description"),
			Vendor:      get("vendor"),
			Category:    get("category"),
			Chassis:     get("chassis"),
			Model:       get("model"),
			Status:      get("status"),
			Image:       get("img"),
		}
		if item.Id == "" {
			continue
		}
		if item.Year, err = number("year"); err != nil {
			return nil, fmt.Errorf("line %d: year: %w", line+2, err)
		}
		if item.Price, err = number("price"); err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}
