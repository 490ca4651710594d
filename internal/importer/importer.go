// Package importer loads products from delimited text files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"catalog_system/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxSKULength  = 50
	maxNameLength = 100
)

// Header aliases, compared lower-cased
var (
	skuHeaders         = []string{"sku", "код", "артикул"}
	nameHeaders        = []string{"name", "название", "товар", "наименование"}
	priceHeaders       = []string{"price", "цена", "стоимость"}
	descriptionHeaders = []string{"description", "описание"}
)

// Result counts the rows of one import run
type Result struct {
	Imported int
	Skipped  int
}

// Add accumulates other into r
func (r *Result) Add(other Result) {
	r.Imported += other.Imported
	r.Skipped += other.Skipped
}

// Importer upserts products by sku
type Importer struct {
	db        *gorm.DB
	delimiter rune
}

// New builds an importer reading fields separated by delimiter
func New(db *gorm.DB, delimiter rune) *Importer {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Importer{db: db, delimiter: delimiter}
}

// ImportFile imports one file. Missing files return os.ErrNotExist.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// ImportFiles imports every path, skipping files that do not exist or cannot
// be read, and returns the totals
func (im *Importer) ImportFiles(ctx context.Context, paths []string) Result {
	var total Result
	for _, path := range paths {
		res, err := im.ImportFile(ctx, path)
		if errors.Is(err, os.ErrNotExist) {
			logrus.WithField("file", path).Warn("Import file not found, skipping")
			continue
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"file": path, "error": err.Error()}).Error("Import file failed")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"file":     filepath.Base(path),
			"imported": res.Imported,
			"skipped":  res.Skipped,
		}).Info("Import file done")
		total.Add(res)
	}
	return total
}

// Import reads a header row followed by product rows. Rows that cannot be
// parsed or stored are skipped and counted.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = im.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := newColumns(header)

	var res Result
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("read row: %w", err)
		}
		product, err := cols.product(record)
		if err != nil {
			res.Skipped++
			continue
		}
		if err := im.upsert(ctx, product); err != nil {
			logrus.WithFields(logrus.Fields{"sku": product.SKU, "error": err.Error()}).Debug("Import row rejected")
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res, nil
}

func (im *Importer) upsert(ctx context.Context, product *domain.Product) error {
	return im.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price"}),
	}).Create(product).Error
}

// columns maps header aliases to record positions; -1 means absent
type columns struct {
	sku, name, price, description int
}

func newColumns(header []string) columns {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff") // UTF-8 BOM
	}
	find := func(aliases []string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, alias := range aliases {
				if h == alias {
					return i
				}
			}
		}
		return -1
	}
	return columns{
		sku:         find(skuHeaders),
		name:        find(nameHeaders),
		price:       find(priceHeaders),
		description: find(descriptionHeaders),
	}
}

func (c columns) product(record []string) (*domain.Product, error) {
	if len(record) == 0 || strings.TrimSpace(strings.Join(record, "")) == "" {
		return nil, errors.New("empty row")
	}

	sku := field(record, c.sku)
	if sku == "" {
		// Stable surrogate so re-importing the same row updates it
		sku = uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(record, "\x1f"))).String()
	}

	name := field(record, c.name)
	if name == "" {
		name = strings.TrimSpace(record[0])
	}
	if name == "" {
		name = "Unnamed"
	}

	rawPrice := field(record, c.price)
	if c.price < 0 {
		rawPrice = c.firstNumericCell(record)
	}
	price, err := parseImportPrice(rawPrice)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		Name:        truncate(name, maxNameLength),
		Price:       price,
		Description: field(record, c.description),
		SKU:         truncate(sku, maxSKULength),
	}, nil
}

// firstNumericCell returns the first cell, other than sku and name, holding a digit
func (c columns) firstNumericCell(record []string) string {
	for i, v := range record {
		if i == c.sku || i == c.name || (c.name < 0 && i == 0) {
			continue
		}
		if strings.IndexFunc(v, unicode.IsDigit) >= 0 {
			return v
		}
	}
	return ""
}

// parseImportPrice accepts "1 234,50" style values; blank means zero
func parseImportPrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", raw, err)
	}
	return price.Round(2), nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
