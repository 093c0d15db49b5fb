// Package parser turns provider notifications into per-address payment
// events. Nothing in here performs I/O.
package parser

import (
	"strings"
	"time"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
)

type Result struct {
	Events []model.ParsedEvent
	// Rejected counts events that failed IsValidTransaction.
	Rejected int
	// Candidates is the number of distinct destination addresses found,
	// before zero-amount addresses are dropped.
	Candidates int
}

// Parse extracts one event per destination address that received a non-zero
// amount. Events are returned in order of first appearance of the address.
func Parse(kind consts.EventKind, n *model.Notification, observedAt time.Time) Result {
	var res Result
	if n == nil {
		return res
	}

	candidates := candidateAddresses(n)
	res.Candidates = len(candidates)

	status := DeriveStatus(kind, n.Confirmations, n.DoubleSpend)
	confidence := scaleConfidence(n.Confidence)

	for _, address := range candidates {
		total := attributedAmount(n, address)
		if total <= 0 {
			continue
		}

		ev := model.ParsedEvent{
			TransactionHash:     n.Hash,
			Address:             address,
			Status:              status,
			TotalAmountSatoshis: int64Ptr(total),
			FeesSatoshis:        int64Ptr(n.Fees),
			Confidence:          confidence,
			Confirmations:       n.Confirmations,
			IsDoubleSpend:       n.DoubleSpend,
			ObservedAt:          observedAt,
		}
		if !IsValidTransaction(ev) {
			res.Rejected++
			continue
		}
		res.Events = append(res.Events, ev)
	}

	return res
}

func candidateAddresses(n *model.Notification) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(n.Outputs)+1)

	add := func(address string) {
		address = strings.TrimSpace(address)
		if address == "" {
			return
		}
		if _, ok := seen[address]; ok {
			return
		}
		seen[address] = struct{}{}
		out = append(out, address)
	}

	for _, output := range n.Outputs {
		for _, address := range output.Addresses {
			add(address)
		}
	}
	add(n.Address)

	return out
}

// attributedAmount prefers the top-level total when the notification is
// scoped to this address; otherwise it sums the matching outputs.
func attributedAmount(n *model.Notification, address string) int64 {
	if strings.TrimSpace(n.Address) == address && n.Total > 0 {
		return n.Total
	}

	var sum int64
	for _, output := range n.Outputs {
		for _, a := range output.Addresses {
			if a == address {
				sum += output.Value
				break
			}
		}
	}
	return sum
}

// scaleConfidence converts the provider's 0..1 probability to a percentage.
func scaleConfidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	pct := *c * 100
	if pct > 100 {
		pct = 100
	}
	return &pct
}

func int64Ptr(v int64) *int64 {
	return &v
}
