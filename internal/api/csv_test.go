package api_test

import (
	"strings"
	"testing"
	"time"

	"muleguard/intel-api/internal/api"
)

func TestParseCSV_ValidBatch(t *testing.T) {
	in := strings.Join([]string{
		"transaction_id,sender_id,receiver_id,amount,timestamp",
		"t1,A,B,1500.50,2026-02-25T10:00:00Z",
		"t2,B,C,200,2026-02-25 11:30:00",
		"t3,C,D,0,2026-02-26",
	}, "\n")

	batch, err := api.ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("parsed %d rows, want 3", len(batch))
	}
	if batch[0].Amount != 1500.50 || batch[0].SenderID != "A" {
		t.Errorf("row 1 = %+v", batch[0])
	}
	if want := time.Date(2026, 2, 25, 11, 30, 0, 0, time.UTC); !batch[1].Timestamp.Equal(want) {
		t.Errorf("row 2 timestamp = %v, want %v", batch[1].Timestamp, want)
	}
	if batch[2].Amount != 0 {
		t.Errorf("zero amount should be accepted, got %+v", batch[2])
	}
}

func TestParseCSV_ColumnOrderIrrelevant(t *testing.T) {
	in := "amount,receiver_id,timestamp,transaction_id,sender_id,extra\n" +
		"42,B,2026-02-25T10:00:00Z,t1,A,ignored\n"

	batch, err := api.ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if batch[0].TransactionID != "t1" || batch[0].ReceiverID != "B" || batch[0].Amount != 42 {
		t.Errorf("row = %+v", batch[0])
	}
}

func TestParseCSV_Errors(t *testing.T) {
	header := "transaction_id,sender_id,receiver_id,amount,timestamp\n"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty file", "", "empty"},
		{"missing columns", "transaction_id,amount\nt1,5\n", "missing required columns: sender_id, receiver_id, timestamp"},
		{"bad amount", header + "t1,A,B,lots,2026-02-25T10:00:00Z\n", `row 2: invalid amount "lots"`},
		{"negative amount", header + "t1,A,B,-5,2026-02-25T10:00:00Z\n", "row 2: amount must not be negative"},
		{"bad timestamp", header + "t1,A,B,5,yesterday\n", `row 2: invalid timestamp "yesterday"`},
		{"blank ids", header + "t1,,B,5,2026-02-25T10:00:00Z\n", "row 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := api.ParseCSV(strings.NewReader(tc.in))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to mention %q", err, tc.want)
			}
		})
	}
}
