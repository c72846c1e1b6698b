package detect

import "muleguard/intel-api/internal/domain"

// Consolidate merges the three detectors' findings into the canonical ring
// list and suspicious-account set that feed scoring.
//
// Rings are concatenated in detector order (cycle, smurfing, shell_chain)
// with no dedup: a ring is kept per detector occurrence even when its
// accounts overlap with another ring. Accounts are merged by account id with
// a keep-first-seen policy: a later detector's record for an account already
// present is dropped, patterns included.
func Consolidate(cycles, smurfs, shells Findings) ([]domain.Ring, []*domain.SuspiciousAccount) {
	rings := make([]domain.Ring, 0, len(cycles.Rings)+len(smurfs.Rings)+len(shells.Rings))
	rings = append(rings, cycles.Rings...)
	rings = append(rings, smurfs.Rings...)
	rings = append(rings, shells.Rings...)

	var accounts []*domain.SuspiciousAccount
	seen := make(map[string]bool)
	for _, f := range []Findings{cycles, smurfs, shells} {
		for _, acc := range f.Accounts {
			if seen[acc.AccountID] {
				continue
			}
			seen[acc.AccountID] = true
			accounts = append(accounts, acc)
		}
	}
	return rings, accounts
}
