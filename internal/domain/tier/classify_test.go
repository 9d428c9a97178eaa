package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/catalog"
)

func product(id string, index *int) catalog.Product {
	return catalog.Product{ID: id, TierName: "Same Name", TierIndex: index}
}

func TestClassify(t *testing.T) {
	one, two := intPtr(1), intPtr(2)

	cases := []struct {
		name    string
		current *catalog.Product
		target  catalog.Product
		want    Classification
	}{
		{"first purchase", nil, product("b", two), Upgrade},
		{"first purchase unranked", nil, product("b", nil), Upgrade},
		{"higher index", ptr(product("a", one)), product("b", two), Upgrade},
		{"lower index", ptr(product("a", two)), product("b", one), Downgrade},
		{"equal index", ptr(product("a", two)), product("b", intPtr(2)), Lateral},
		{"current unranked", ptr(product("a", nil)), product("b", one), Incomparable},
		{"target unranked", ptr(product("a", one)), product("b", nil), Incomparable},
		{"zero is a real index", ptr(product("a", intPtr(0))), product("b", one), Upgrade},
		{"other application", ptr(inApp(product("a", two), 1)), inApp(product("b", one), 2), Incomparable},
		{"same application", ptr(inApp(product("a", two), 1)), inApp(product("b", one), 1), Downgrade},
		{"application unset on one side", ptr(product("a", one)), inApp(product("b", two), 2), Upgrade},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.current, tc.target))
		})
	}
}

func TestClassify_IgnoresTierNames(t *testing.T) {
	current := catalog.Product{ID: "a", TierName: "Zeta", TierIndex: intPtr(1)}
	target := catalog.Product{ID: "b", TierName: "Alpha", TierIndex: intPtr(3)}

	assert.Equal(t, Upgrade, Classify(&current, target))
}

func TestClassify_DowngradeIsOnlyFromLowerIndex(t *testing.T) {
	for from := 0; from < 5; from++ {
		for to := 0; to < 5; to++ {
			current := product("a", intPtr(from))
			got := Classify(&current, product("b", intPtr(to)))
			assert.Equal(t, to < from, got == Downgrade, "from %d to %d", from, to)
		}
	}
}

func TestChangeType(t *testing.T) {
	assert.Equal(t, ChangeTypeDowngrade, Downgrade.ChangeType())
	assert.Equal(t, ChangeTypeUpgrade, Upgrade.ChangeType())
	assert.Equal(t, ChangeTypeUpgrade, Lateral.ChangeType())
	assert.Equal(t, ChangeTypeUpgrade, Incomparable.ChangeType())
}

func TestWarning(t *testing.T) {
	assert.NotEmpty(t, Incomparable.Warning())
	assert.Empty(t, Upgrade.Warning())
	assert.Empty(t, Lateral.Warning())
}

func ptr(p catalog.Product) *catalog.Product { return &p }

func intPtr(v int) *int { return &v }

func inApp(p catalog.Product, appID int64) catalog.Product {
	p.AppID = appID
	return p
}

func TestClassify_AcrossApplicationsIsIncomparable(t *testing.T) {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a := inApp(product("a", intPtr(i)), 1)
			b := inApp(product("b", intPtr(j)), 2)
			assert.Equal(t, Incomparable, Classify(&a, b), "%d vs %d", i, j)
			assert.Equal(t, ChangeTypeUpgrade, Classify(&a, b).ChangeType())
		}
	}
}

func TestClassify_SwappingArgumentsFlipsVerdict(t *testing.T) {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a := product("a", intPtr(i))
			b := product("b", intPtr(j))

			forward, backward := Classify(&a, b), Classify(&b, a)
			switch forward {
			case Upgrade:
				assert.Equal(t, Downgrade, backward)
			case Downgrade:
				assert.Equal(t, Upgrade, backward)
			default:
				assert.Equal(t, Lateral, backward)
			}
		}
		a := product("a", intPtr(i))
		assert.Equal(t, Lateral, Classify(&a, a))
	}
}

func TestClassify_MissingIndexAlwaysIncomparable(t *testing.T) {
	unranked := product("x", nil)
	for i := -1; i < 3; i++ {
		ranked := product("r", intPtr(i))
		assert.Equal(t, Incomparable, Classify(&unranked, ranked))
		assert.Equal(t, Incomparable, Classify(&ranked, unranked))
	}
	assert.Equal(t, Incomparable, Classify(&unranked, unranked))
}
