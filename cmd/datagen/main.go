// Command datagen generates a test transaction dataset for the Muleguard
// Fraud Intelligence API and writes it to data/transactions.csv.
//
// Usage:
//
//	go run ./cmd/datagen [flags]
//
// Flags:
//
//	-out    output CSV path (default: data/transactions.csv)
//	-noise  number of background transfers between legitimate accounts (default: 120)
//
// The generated dataset plants one of each laundering pattern among ordinary
// peer-to-peer noise:
//   - a 4-account circular routing ring
//   - a smurfing group of 6 feeders paying one aggregator within hours
//   - a 5-account shell layering chain through quiet intermediaries
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"muleguard/intel-api/internal/domain"
)

func main() {
	out := flag.String("out", "data/transactions.csv", "output CSV path")
	noise := flag.Int("noise", 120, "number of background transfers")
	flag.Parse()

	rng := rand.New(rand.NewSource(42)) // deterministic seed for reproducibility

	baseTime := time.Now().UTC().Truncate(time.Hour).Add(-7 * 24 * time.Hour)
	var transactions []domain.Transaction

	transactions = append(transactions, generateCycleRing(rng, baseTime)...)
	transactions = append(transactions, generateSmurfingGroup(rng, baseTime)...)
	transactions = append(transactions, generateShellChain(rng, baseTime)...)
	transactions = append(transactions, generateNoise(rng, baseTime, *noise)...)

	// Shuffle so patterns aren't trivially grouped in the file.
	rng.Shuffle(len(transactions), func(i, j int) {
		transactions[i], transactions[j] = transactions[j], transactions[i]
	})
	for i := range transactions {
		transactions[i].TransactionID = fmt.Sprintf("TX%05d", i+1)
	}

	if err := writeCSV(*out, transactions); err != nil {
		fmt.Fprintf(os.Stderr, "datagen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d transactions → %s\n", len(transactions), *out)
}

// ─── Circular routing (4 accounts) ────────────────────────────────────────────

func generateCycleRing(rng *rand.Rand, base time.Time) []domain.Transaction {
	ring := []string{"ACC_CYCLE_1", "ACC_CYCLE_2", "ACC_CYCLE_3", "ACC_CYCLE_4"}
	amount := 9500 + rng.Float64()*500 // just under a common reporting limit
	var txs []domain.Transaction
	for i := range ring {
		txs = append(txs, domain.Transaction{
			SenderID:   ring[i],
			ReceiverID: ring[(i+1)%len(ring)],
			Amount:     amount * (0.97 + rng.Float64()*0.02), // shrink a little per hop
			Timestamp:  base.Add(time.Duration(i*6) * time.Hour),
		})
	}
	return txs
}

// ─── Smurfing (6 feeders, 1 aggregator) ───────────────────────────────────────

func generateSmurfingGroup(rng *rand.Rand, base time.Time) []domain.Transaction {
	const aggregator = "ACC_AGG_1"
	start := base.Add(24 * time.Hour)
	var txs []domain.Transaction
	for i := 1; i <= 6; i++ {
		txs = append(txs, domain.Transaction{
			SenderID:   fmt.Sprintf("ACC_FEED_%d", i),
			ReceiverID: aggregator,
			Amount:     400 + rng.Float64()*600,
			// All deposits land inside one 36-hour window.
			Timestamp: start.Add(time.Duration(rng.Intn(36)) * time.Hour),
		})
	}
	return txs
}

// ─── Shell layering (5 accounts in a line) ────────────────────────────────────

func generateShellChain(rng *rand.Rand, base time.Time) []domain.Transaction {
	chain := []string{"ACC_SHELL_1", "ACC_SHELL_2", "ACC_SHELL_3", "ACC_SHELL_4", "ACC_SHELL_5"}
	amount := 25000.0
	var txs []domain.Transaction
	for i := 0; i < len(chain)-1; i++ {
		amount *= 0.99 // layering fee per hop
		txs = append(txs, domain.Transaction{
			SenderID:   chain[i],
			ReceiverID: chain[i+1],
			Amount:     amount,
			Timestamp:  base.Add(48*time.Hour + time.Duration(i*3)*time.Hour),
		})
	}
	return txs
}

// ─── Background noise ─────────────────────────────────────────────────────────

// generateNoise emits ordinary transfers between a pool of legitimate
// accounts. The pool is large relative to the transfer count, so no receiver
// accumulates enough distinct senders to look like an aggregator.
func generateNoise(rng *rand.Rand, base time.Time, n int) []domain.Transaction {
	const poolSize = 80
	var txs []domain.Transaction
	for i := 0; i < n; i++ {
		sender := fmt.Sprintf("ACC_USER_%02d", rng.Intn(poolSize))
		receiver := fmt.Sprintf("ACC_USER_%02d", rng.Intn(poolSize))
		if receiver == sender {
			continue
		}
		txs = append(txs, domain.Transaction{
			SenderID:   sender,
			ReceiverID: receiver,
			Amount:     10 + rng.Float64()*290,
			Timestamp:  base.Add(time.Duration(rng.Intn(7*24*60)) * time.Minute),
		})
	}
	return txs
}

// ─── Output ───────────────────────────────────────────────────────────────────

func writeCSV(path string, transactions []domain.Transaction) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}); err != nil {
		return err
	}
	for _, tx := range transactions {
		record := []string{
			tx.TransactionID,
			tx.SenderID,
			tx.ReceiverID,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
