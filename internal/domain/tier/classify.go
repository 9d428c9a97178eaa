package tier

import "github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"

// Classification describes a tier change relative to the tenant's current product.
type Classification string

const (
	Upgrade      Classification = "upgrade"
	Downgrade    Classification = "downgrade"
	Lateral      Classification = "lateral"
	Incomparable Classification = "incomparable"
)

// Billing change-type strings understood by the billing service.
const (
	ChangeTypeUpgrade   = "upgrade"
	ChangeTypeDowngrade = "downgrade"
)

// Classify compares tier indices only. Tier names are display labels and are
// never compared. A nil current product is a first purchase. Indices of
// different applications are unrelated, so such a pair is incomparable.
func Classify(current *catalog.Product, target catalog.Product) Classification {
	if current == nil {
		return Upgrade
	}
	if current.AppID != 0 && target.AppID != 0 && current.AppID != target.AppID {
		return Incomparable
	}
	if !current.Ranked() || !target.Ranked() {
		return Incomparable
	}

	switch from, to := *current.TierIndex, *target.TierIndex; {
	case to > from:
		return Upgrade
	case to < from:
		return Downgrade
	default:
		return Lateral
	}
}

// ChangeType maps a classification to the billing change type. Only a
// downgrade is sent as such; lateral and incomparable changes bill as upgrades
// so missing ranking data never blocks a change.
func (c Classification) ChangeType() string {
	if c == Downgrade {
		return ChangeTypeDowngrade
	}
	return ChangeTypeUpgrade
}

// Warning returns an operator-facing warning, if the classification needs one.
func (c Classification) Warning() string {
	if c == Incomparable {
		return "tier ranking unavailable for this change; billing will treat it as an upgrade"
	}
	return ""
}
