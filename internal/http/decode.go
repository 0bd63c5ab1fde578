package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"storefront/internal/domain"
)

// quantityCap keeps absurd client quantities inside int64 before the
// service clamps them.
const quantityCap = 1 << 40

// decodeOrderLines reads a create-payment-intent body leniently. A body that
// is not an object with an "items" array yields no lines, which the pricing
// service reports as an empty order. Malformed elements become lines with an
// empty id or zero quantity so the service rejects them in position. Only a
// failure to read the body is returned as an error.
func decodeOrderLines(r io.Reader) ([]domain.OrderLine, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(envelope["items"], &items); err != nil {
		return nil, nil
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, raw := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			lines = append(lines, domain.OrderLine{})
			continue
		}
		var id string
		if err := json.Unmarshal(fields["productId"], &id); err != nil {
			id = ""
		}
		lines = append(lines, domain.OrderLine{ProductID: id, Quantity: parseQuantity(fields["quantity"])})
	}
	return lines, nil
}

// parseQuantity accepts JSON numbers with an integral value. Strings,
// booleans, fractions and anything else read as 0.
func parseQuantity(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	switch {
	case f > quantityCap:
		return quantityCap
	case f < -quantityCap:
		return -quantityCap
	}
	return int64(f)
}
