package booking

// DefaultMaxQuantity is the ceiling applied when a timeslot's remaining
// capacity is unknown.
const DefaultMaxQuantity = 12

// ClampQuantity resolves a requested ticket count against a capacity ceiling.
// A ceiling below 1 means capacity is unknown and falls back to
// DefaultMaxQuantity. The result is always within [1, ceiling].
func ClampQuantity(requested, ceiling int) int {
	if ceiling < 1 {
		ceiling = DefaultMaxQuantity
	}
	if requested < 1 {
		requested = 1
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}

// Total computes the booking total in cents. A zero or negative unit price
// means the price is not yet known and no total can be quoted.
func Total(quantity int, unitPriceCents int64) (int64, bool) {
	if unitPriceCents <= 0 {
		return 0, false
	}
	if quantity < 1 {
		quantity = 1
	}
	return int64(quantity) * unitPriceCents, true
}
