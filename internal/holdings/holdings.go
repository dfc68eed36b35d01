package holdings

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"Backtester/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Column names of a broker holdings export.
const (
	ColInstrument = "Instrument"
	ColQty        = "Qty."
	ColAvgCost    = "Avg. cost"
	ColLTP        = "LTP"
)

// Holding is one line of a holdings export.
type Holding struct {
	Instrument string
	Qty        decimal.Decimal
	AvgCost    decimal.Decimal
	LTP        decimal.Decimal
}

// Read parses a holdings CSV. UTF-16 input is recognised by its byte order
// mark. Rows with an unparseable number are skipped.
func Read(r io.Reader) ([]Holding, error) {
	br := bufio.NewReader(r)
	if b, _ := br.Peek(2); len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		tr := transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &model.InvalidInputError{Field: "holdings", Reason: "empty file"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	cols := make([]int, 0, 4)
	for _, name := range []string{ColInstrument, ColQty, ColAvgCost, ColLTP} {
		i, ok := idx[name]
		if !ok {
			return nil, &model.InvalidInputError{Field: "holdings", Reason: fmt.Sprintf("missing column %q", name)}
		}
		cols = append(cols, i)
	}

	var out []Holding
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		h, err := parseRow(rec, cols)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping holdings row")
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func parseRow(rec []string, cols []int) (Holding, error) {
	for _, c := range cols {
		if c >= len(rec) {
			return Holding{}, fmt.Errorf("row has %d fields", len(rec))
		}
	}
	num := func(col int) (decimal.Decimal, error) {
		s := strings.ReplaceAll(strings.TrimSpace(rec[col]), ",", "")
		return decimal.NewFromString(s)
	}
	h := Holding{Instrument: strings.TrimSpace(rec[cols[0]])}
	var err error
	if h.Qty, err = num(cols[1]); err != nil {
		return Holding{}, fmt.Errorf("%s: %w", ColQty, err)
	}
	if h.AvgCost, err = num(cols[2]); err != nil {
		return Holding{}, fmt.Errorf("%s: %w", ColAvgCost, err)
	}
	if h.LTP, err = num(cols[3]); err != nil {
		return Holding{}, fmt.Errorf("%s: %w", ColLTP, err)
	}
	return h, nil
}
