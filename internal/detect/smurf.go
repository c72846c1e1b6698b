package detect

import (
	"fmt"
	"sort"
	"time"

	"muleguard/intel-api/internal/domain"
)

// Smurfing contract: at least 5 distinct senders funding one receiver, with
// the receiver's whole transaction span inside 72 hours.
const (
	smurfMinSenders = 5
	smurfWindow     = 72 * time.Hour
)

// DetectSmurfing finds fan-in aggregation over the raw batch, independent of
// the graph. One ring per flagged receiver; members are the distinct senders
// in order of appearance followed by the receiver. An account caught in more
// than one smurf ring keeps its position but is reassigned to the later ring.
func DetectSmurfing(batch []domain.Transaction) Findings {
	type group struct {
		senders    []string // distinct, in order of appearance
		senderSeen map[string]bool
		minTS      time.Time
		maxTS      time.Time
	}

	groups := make(map[string]*group)
	for _, tx := range batch {
		grp, ok := groups[tx.ReceiverID]
		if !ok {
			grp = &group{senderSeen: make(map[string]bool), minTS: tx.Timestamp, maxTS: tx.Timestamp}
			groups[tx.ReceiverID] = grp
		}
		if !grp.senderSeen[tx.SenderID] {
			grp.senderSeen[tx.SenderID] = true
			grp.senders = append(grp.senders, tx.SenderID)
		}
		if tx.Timestamp.Before(grp.minTS) {
			grp.minTS = tx.Timestamp
		}
		if tx.Timestamp.After(grp.maxTS) {
			grp.maxTS = tx.Timestamp
		}
	}

	receivers := make([]string, 0, len(groups))
	for r := range groups {
		receivers = append(receivers, r)
	}
	sort.Strings(receivers)

	var f Findings
	byAccount := make(map[string]*domain.SuspiciousAccount)

	n := 0
	for _, receiver := range receivers {
		grp := groups[receiver]
		if len(grp.senders) < smurfMinSenders {
			continue
		}
		if grp.maxTS.Sub(grp.minTS) > smurfWindow {
			continue
		}

		n++
		ringID := fmt.Sprintf("SMURF_%03d", n)
		members := append(append([]string{}, grp.senders...), receiver)
		f.Rings = append(f.Rings, domain.Ring{
			RingID:         ringID,
			MemberAccounts: members,
			PatternType:    domain.PatternSmurfing,
		})

		for _, account := range members {
			if acc, ok := byAccount[account]; ok {
				// Later ring replaces the earlier assignment.
				acc.DetectedPatterns = []domain.PatternType{domain.PatternSmurfing}
				acc.RingID = ringID
				continue
			}
			acc := &domain.SuspiciousAccount{
				AccountID:        account,
				DetectedPatterns: []domain.PatternType{domain.PatternSmurfing},
				RingID:           ringID,
			}
			byAccount[account] = acc
			f.Accounts = append(f.Accounts, acc)
		}
	}
	return f
}
