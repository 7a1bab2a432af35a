package model

// Shareholding records a company's total outstanding shares, used to compute
// the ownership percentage from the investor's accumulated share count.
type Shareholding struct {
	ID          int64
	Company     string
	OrgNo       string // Swedish organisation number, kept as text.
	TotalShares int64
}

// OwnershipPct returns the ownership percentage implied by owning myShares
// out of the company's total shares. Returns 0 when total shares is unknown.
func (s Shareholding) OwnershipPct(myShares int64) float64 {
	if s.TotalShares <= 0 {
		return 0
	}
	return float64(myShares) / float64(s.TotalShares) * 100
}
