package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"signal-engine/internal/model"
)

// DateLayout is the timestamp format of the Date column.
const DateLayout = "2006-01-02 15:04:05"

// CSVSource streams ticks from a delimited file with a header row holding
// Date, Symbol and a price column named Close or price.
type CSVSource struct {
	r        *csv.Reader
	closer   io.Closer
	dateIdx  int
	symIdx   int
	priceIdx int
	line     int
}

// OpenCSV opens path for streaming. A missing file yields ErrSourceNotFound.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src, err := NewCSVSource(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewCSVSource reads the header from r and prepares to stream rows.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	s := &CSVSource{r: cr, dateIdx: -1, symIdx: -1, priceIdx: -1, line: 1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "date":
			s.dateIdx = i
		case "symbol":
			s.symIdx = i
		case "close", "price":
			if s.priceIdx < 0 {
				s.priceIdx = i
			}
		}
	}
	if s.dateIdx < 0 || s.symIdx < 0 || s.priceIdx < 0 {
		return nil, fmt.Errorf("header %v: need Date, Symbol and Close or price columns", header)
	}
	return s, nil
}

func (s *CSVSource) Next(ctx context.Context) (model.Tick, error) {
	if err := ctx.Err(); err != nil {
		return model.Tick{}, err
	}
	row, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Tick{}, io.EOF
		}
		return model.Tick{}, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	s.line++

	ts, err := time.Parse(DateLayout, strings.TrimSpace(row[s.dateIdx]))
	if err != nil {
		return model.Tick{}, fmt.Errorf("line %d: parse date: %w", s.line, err)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[s.priceIdx]), 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("line %d: parse price: %w", s.line, err)
	}
	tick := model.Tick{
		Timestamp: ts,
		Symbol:    strings.TrimSpace(row[s.symIdx]),
		Price:     price,
	}
	if err := tick.Validate(); err != nil {
		return model.Tick{}, fmt.Errorf("line %d: %w", s.line, err)
	}
	return tick, nil
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// LoadCSV reads the whole file into memory.
func LoadCSV(ctx context.Context, path string) ([]model.Tick, error) {
	src, err := OpenCSV(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return Collect(ctx, src)
}
