package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"muleguard/intel-api/internal/domain"
)

// requiredColumns are the CSV headers an upload must carry. Extra columns are
// ignored; order does not matter.
var requiredColumns = []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCSV reads a transaction batch from CSV. The first row must be a header
// naming at least the required columns; every data row becomes one
// transaction. Errors carry the 1-based row number of the offending line.
func ParseCSV(r io.Reader) ([]domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, found := col[name]; !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv is missing required columns: %s", strings.Join(missing, ", "))
	}

	var batch []domain.Transaction
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		field := func(name string) string {
			return strings.TrimSpace(record[col[name]])
		}

		amount, err := strconv.ParseFloat(field("amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", row, field("amount"))
		}
		if amount < 0 {
			return nil, fmt.Errorf("row %d: amount must not be negative", row)
		}

		ts, err := parseTimestamp(field("timestamp"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		tx := domain.Transaction{
			TransactionID: field("transaction_id"),
			SenderID:      field("sender_id"),
			ReceiverID:    field("receiver_id"),
			Amount:        amount,
			Timestamp:     ts,
		}
		if tx.TransactionID == "" || tx.SenderID == "" || tx.ReceiverID == "" {
			return nil, fmt.Errorf("row %d: transaction_id, sender_id and receiver_id must not be empty", row)
		}
		batch = append(batch, tx)
	}
	return batch, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
