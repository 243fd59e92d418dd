package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// CSVColumnMapping defines column positions and the timestamp layout for a
// CSV bar file.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches "timestamp,open,high,low,close,volume" with
// RFC3339 timestamps.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   time.RFC3339,
}

// CSVProvider reads bar series from header-prefixed CSV files.
type CSVProvider struct {
	symbol    string
	timeframe string
	format    CSVColumnMapping
}

// NewCSVProvider creates a CSV provider tagging loaded bars with the given
// symbol and timeframe.
func NewCSVProvider(symbol, timeframe string) *CSVProvider {
	return &CSVProvider{symbol: symbol, timeframe: timeframe, format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a CSV provider with a custom column map.
func NewCSVProviderWithFormat(symbol, timeframe string, format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{symbol: symbol, timeframe: timeframe, format: format}
}

func (p *CSVProvider) Name() string { return "csv" }

// Load reads and validates all bars from a CSV file.
func (p *CSVProvider) Load(source string) ([]types.Bar, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", source, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("csv: read header of %s: %w", source, err)
	}

	fetchedAt := time.Now().UTC()
	var bars []types.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %s line %d: %w", source, line+1, err)
		}
		line++
		if len(record) < p.format.MinColumns {
			return nil, fmt.Errorf("csv: %s line %d: expected %d columns, got %d",
				source, line, p.format.MinColumns, len(record))
		}
		bar, err := p.parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("csv: %s line %d: %w", source, line, err)
		}
		bar.FetchedAt = fetchedAt
		bars = append(bars, bar)
	}
	if err := Validate(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (p *CSVProvider) parseRecord(record []string) (types.Bar, error) {
	ts, err := time.Parse(p.format.DateFormat, record[p.format.TimestampCol])
	if err != nil {
		// Epoch milliseconds are common in exported exchange data.
		ms, msErr := strconv.ParseInt(record[p.format.TimestampCol], 10, 64)
		if msErr != nil {
			return types.Bar{}, fmt.Errorf("parse timestamp %q: %w", record[p.format.TimestampCol], err)
		}
		ts = time.UnixMilli(ms).UTC()
	}
	fields := [5]float64{}
	for i, col := range [5]int{p.format.OpenCol, p.format.HighCol, p.format.LowCol, p.format.CloseCol, p.format.VolumeCol} {
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("parse column %d %q: %w", col, record[col], err)
		}
		fields[i] = v
	}
	return types.Bar{
		Ts:        ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		Symbol:    p.symbol,
		Timeframe: p.timeframe,
		Source:    "csv",
	}, nil
}
