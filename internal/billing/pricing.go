// AngelaMos | 2026
// pricing.go

package billing

import (
	"fmt"

	"github.com/carterperez-dev/copystudio/internal/config"
)

type Package struct {
	PriceID string `json:"price_id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

// Pricing maps processor price ids to credit amounts. It is built once at
// startup and never mutated.
type Pricing struct {
	version  string
	packages []Package
	byPrice  map[string]Package
}

func NewPricing(cfg config.BillingConfig) (*Pricing, error) {
	if len(cfg.Packages) == 0 {
		return nil, fmt.Errorf("pricing %s: no packages configured", cfg.PricingVersion)
	}

	p := &Pricing{
		version:  cfg.PricingVersion,
		packages: make([]Package, 0, len(cfg.Packages)),
		byPrice:  make(map[string]Package, len(cfg.Packages)),
	}

	for _, pc := range cfg.Packages {
		if pc.PriceID == "" || pc.Credits < 1 {
			return nil, fmt.Errorf("pricing %s: package %q needs a price id and positive credits", cfg.PricingVersion, pc.Name)
		}
		if _, dup := p.byPrice[pc.PriceID]; dup {
			return nil, fmt.Errorf("pricing %s: duplicate price id %s", cfg.PricingVersion, pc.PriceID)
		}
		pkg := Package{PriceID: pc.PriceID, Name: pc.Name, Credits: pc.Credits}
		p.packages = append(p.packages, pkg)
		p.byPrice[pc.PriceID] = pkg
	}

	return p, nil
}

func (p *Pricing) Version() string {
	return p.version
}

func (p *Pricing) Lookup(priceID string) (Package, bool) {
	pkg, ok := p.byPrice[priceID]
	return pkg, ok
}

func (p *Pricing) Packages() []Package {
	out := make([]Package, len(p.packages))
	copy(out, p.packages)
	return out
}
