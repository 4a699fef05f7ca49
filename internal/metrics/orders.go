package metrics

import "math"

// OrdersDropped is the smallest log10 drop from first to latest residual
// across fields, i.e. how far the slowest field has converged.
type OrdersDropped struct {
	name  string
	drops map[string]float64
}

// NewOrdersDropped returns an empty metric.
func NewOrdersDropped() *OrdersDropped {
	return &OrdersDropped{
		name:  "orders_dropped",
		drops: make(map[string]float64),
	}
}

// Name is "orders_dropped".
func (o *OrdersDropped) Name() string {
	return o.name
}

// Observe records the field's drop. Non-positive residuals are ignored.
func (o *OrdersDropped) Observe(field string, times, values []float64) {
	if len(values) == 0 {
		return
	}
	first, last := values[0], values[len(values)-1]
	if first <= 0 || last <= 0 {
		return
	}
	o.drops[field] = math.Log10(first / last)
}

// Value is the smallest drop, 0 before any update.
func (o *OrdersDropped) Value() float64 {
	if len(o.drops) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, d := range o.drops {
		min = math.Min(min, d)
	}
	return min
}

// Reset forgets every field.
func (o *OrdersDropped) Reset() {
	o.drops = make(map[string]float64)
}
