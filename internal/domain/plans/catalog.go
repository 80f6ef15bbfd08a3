package plans

import "fmt"

type Plan struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	MaxPhotos int    `json:"maxPhotos"`
	// Purchasable plans go through checkout; the free plan goes through the
	// usage gate instead.
	Purchasable   bool   `json:"purchasable"`
	StripePriceID string `json:"-"`
}

type Catalog struct {
	plans map[string]Plan
}

type Limits struct {
	FreeMaxPhotos        int
	PremiumMaxPhotos     int
	StripePremiumPriceID string
}

func NewCatalog(l Limits) *Catalog {
	return &Catalog{plans: map[string]Plan{
		KeyFree: {
			Key:       KeyFree,
			Name:      "Free",
			MaxPhotos: l.FreeMaxPhotos,
		},
		KeyPremium: {
			Key:           KeyPremium,
			Name:          "Premium",
			MaxPhotos:     l.PremiumMaxPhotos,
			Purchasable:   true,
			StripePriceID: l.StripePremiumPriceID,
		},
	}}
}

// Get resolves a plan by (normalized) key.
func (c *Catalog) Get(key string) (Plan, bool) {
	p, ok := c.plans[NormalizeKey(key)]
	return p, ok
}

// Free always exists.
func (c *Catalog) Free() Plan {
	return c.plans[KeyFree]
}

// MaxPhotos is the photo ceiling for a plan; unknown plans get the free limit.
func (c *Catalog) MaxPhotos(key string) int {
	if p, ok := c.Get(key); ok {
		return p.MaxPhotos
	}
	return c.Free().MaxPhotos
}

// Checkout returns the plan to sell for key, or an error when it cannot be bought.
func (c *Catalog) Checkout(key string) (Plan, error) {
	p, ok := c.Get(key)
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", key)
	}
	if !p.Purchasable {
		return Plan{}, fmt.Errorf("plan %q is not purchasable", p.Key)
	}
	if p.StripePriceID == "" {
		return Plan{}, fmt.Errorf("plan %q has no stripe price configured", p.Key)
	}
	return p, nil
}
