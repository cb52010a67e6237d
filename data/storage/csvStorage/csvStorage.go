package csvStorage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KotFed0t/kr_portfolio_manager/data/repository"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
)

const (
	colName = iota
	colTicker
	colQuantity
	colTargetWeight
	columnsCount
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var header = []string{"name", "ticker", "quantity", "targetWeightWithinEquity"}

// files written by the first version of the tool use korean headers
var headerAliases = map[string]int{
	"name":                     colName,
	"ticker":                   colTicker,
	"quantity":                 colQuantity,
	"targetWeightWithinEquity": colTargetWeight,
	"종목명":                      colName,
	"종목코드":                     colTicker,
	"수량":                       colQuantity,
	"목표비중(주식내)":                colTargetWeight,
}

// CsvStorage keeps holdings in a single csv file that is replaced as a whole on every save.
type CsvStorage struct {
	path string
}

func New(path string) *CsvStorage {
	return &CsvStorage{path: path}
}

// Load reads every holding from the file. repository.ErrNotFound is returned
// when the file does not exist.
func (s *CsvStorage) Load(ctx context.Context) (records []model.HoldingRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CsvStorage.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", s.path))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("Load failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Load completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(records)))
		}
	}()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return parse(bytes.TrimPrefix(data, utf8BOM))
}

// Save overwrites the file with records. The new content is written to a
// temporary file first and renamed over the old one.
func (s *CsvStorage) Save(ctx context.Context, records []model.HoldingRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CsvStorage.Save"

	slog.Debug("Save start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", s.path), slog.Int("rows", len(records)))
	defer func() {
		if err != nil {
			slog.Error("Save failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Save completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	buf := bytes.Buffer{}
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err = w.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Name, r.Ticker, strconv.FormatInt(r.Quantity, 10), r.TargetWeight}
		if err = w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return err
	}

	return writeFileAtomic(s.path, buf.Bytes())
}

func parse(data []byte) ([]model.HoldingRecord, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	head, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("holdings file has no header")
		}
		return nil, err
	}

	index, err := columnIndex(head)
	if err != nil {
		return nil, err
	}

	records := make([]model.HoldingRecord, 0)
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if _, ok := seen[record.Name]; ok {
			return nil, fmt.Errorf("line %d: duplicate holding name %q", line, record.Name)
		}
		seen[record.Name] = struct{}{}

		records = append(records, record)
	}

	return records, nil
}

func columnIndex(head []string) ([columnsCount]int, error) {
	index := [columnsCount]int{-1, -1, -1, -1}
	for i, title := range head {
		if col, ok := headerAliases[strings.TrimSpace(title)]; ok {
			index[col] = i
		}
	}

	for col, i := range index {
		if i < 0 {
			return index, fmt.Errorf("holdings file misses column %q", header[col])
		}
	}

	return index, nil
}

func parseRow(row []string, index [columnsCount]int) (model.HoldingRecord, error) {
	field := func(col int) string {
		if index[col] >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[index[col]])
	}

	name := field(colName)
	if name == "" {
		return model.HoldingRecord{}, errors.New("empty holding name")
	}

	quantity, err := strconv.ParseInt(field(colQuantity), 10, 64)
	if err != nil {
		return model.HoldingRecord{}, fmt.Errorf("holding %q: invalid quantity: %w", name, err)
	}
	if quantity < 0 {
		return model.HoldingRecord{}, fmt.Errorf("holding %q: negative quantity %d", name, quantity)
	}

	return model.HoldingRecord{
		Name:         name,
		Ticker:       field(colTicker),
		Quantity:     quantity,
		TargetWeight: field(colTargetWeight),
	}, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
