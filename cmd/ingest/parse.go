package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"agrimarket/internal/domain"
)

// priceColumns are the required CSV header fields.
var priceColumns = []string{"commodity", "category", "market", "market_type", "location", "date", "price"}

// parsePricesCSV reads daily price observations.
// The header is matched case-insensitively and may list columns in any order.
func parsePricesCSV(r io.Reader) ([]domain.DailyPrice, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty prices file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range priceColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var out []domain.DailyPrice
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string { return strings.TrimSpace(row[idx[name]]) }

		day, err := time.Parse(domain.DateLayout, field("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, field("date"))
		}
		price, err := strconv.ParseFloat(field("price"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q", line, field("price"))
		}

		out = append(out, domain.DailyPrice{
			Commodity:  field("commodity"),
			Category:   field("category"),
			Market:     field("market"),
			MarketType: field("market_type"),
			Location:   field("location"),
			Date:       day,
			Price:      price,
		})
	}
	return out, nil
}

// parseRecordsJSONL reads one JSON object per line. Blank lines are skipped.
func parseRecordsJSONL(r io.Reader) ([]domain.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var out []domain.RawRecord
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(doc) == 0 {
			continue
		}
		out = append(out, domain.RecordFromMap(doc))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return out, nil
}
