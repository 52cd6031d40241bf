package domain

const (
	DefaultShippingFee           int64 = 150
	DefaultFreeShippingThreshold int64 = 3000
)

// ShippingPolicy prices delivery: free once the item subtotal reaches the
// threshold, a flat fee otherwise.
type ShippingPolicy struct {
	Fee           int64
	FreeThreshold int64
}

// DefaultShippingPolicy returns the store's standard fee schedule.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		Fee:           DefaultShippingFee,
		FreeThreshold: DefaultFreeShippingThreshold,
	}
}

// FeeFor returns the shipping fee for a given item subtotal.
func (p ShippingPolicy) FeeFor(subtotal int64) int64 {
	if subtotal >= p.FreeThreshold {
		return 0
	}
	return p.Fee
}
