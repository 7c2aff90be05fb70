package catalog

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadJSON reads records from a JSON file: an array of Record objects with a
// "kind" discriminant. Invalid records fail the whole load so a bad file is
// caught at startup rather than at query time.
func LoadJSON(path string) ([]*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read catalog file %s", path)
	}
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "unable to parse catalog file %s", path)
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid record in %s", path)
		}
	}
	return records, nil
}

// LoadCSV reads product records from a CSV file with a header row:
// id,name,category,keywords,description,specification,price,unit.
// Keywords are separated by ';' within the cell.
func LoadCSV(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open catalog file %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read csv header from %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []*Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read csv row from %s", path)
		}

		r := &Record{
			ID:            cell(row, "id"),
			Kind:          KindProduct,
			Name:          cell(row, "name"),
			Category:      cell(row, "category"),
			Description:   cell(row, "description"),
			Specification: cell(row, "specification"),
			Unit:          cell(row, "unit"),
		}
		if kw := cell(row, "keywords"); kw != "" {
			for _, k := range strings.Split(kw, ";") {
				if k = strings.TrimSpace(k); k != "" {
					r.Keywords = append(r.Keywords, k)
				}
			}
		}
		if p := cell(row, "price"); p != "" {
			price, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid price %q for record %s", p, r.ID)
			}
			r.Price = price
		}
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid record in %s", path)
		}
		records = append(records, r)
	}
	return records, nil
}

// LoadAll loads the product and policy files that exist and merges them.
// Either path may be empty.
func LoadAll(productPath, policyPath string) ([]*Record, error) {
	var records []*Record
	if productPath != "" {
		loaded, err := loadByExt(productPath)
		if err != nil {
			return nil, err
		}
		records = append(records, loaded...)
	}
	if policyPath != "" {
		loaded, err := LoadJSON(policyPath)
		if err != nil {
			return nil, err
		}
		records = append(records, loaded...)
	}
	return records, nil
}

func loadByExt(path string) ([]*Record, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return LoadCSV(path)
	}
	return LoadJSON(path)
}
