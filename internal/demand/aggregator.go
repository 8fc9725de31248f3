package demand

import (
	"fmt"
	"strings"

	"agrimarket/internal/domain"
)

// Aggregate groups records by the schema's item field and collects valid
// price (> 0) and demand (>= 0) values per item.
//
// Records whose identifier is null, empty, zero, false or "unknown" are skipped.
// Invalid numeric values are dropped but still count toward TotalDataPoints.
// With a synthetic schema every record becomes its own item named Item_{index}.
func Aggregate(records []domain.RawRecord, s domain.InferredSchema) map[string]*domain.ItemAggregate {
	items := make(map[string]*domain.ItemAggregate)

	for i, rec := range records {
		name, ok := itemName(rec, i, s)
		if !ok {
			continue
		}

		agg, exists := items[name]
		if !exists {
			agg = &domain.ItemAggregate{ItemName: name}
			items[name] = agg
		}
		agg.TotalDataPoints++

		if s.PriceField != nil {
			if p, ok := rec.Get(*s.PriceField).Float(); ok && p > 0 {
				agg.Prices = append(agg.Prices, p)
			}
		}
		if s.DemandField != nil {
			if d, ok := rec.Get(*s.DemandField).Float(); ok && d >= 0 {
				agg.Demands = append(agg.Demands, d)
			}
		}
	}

	return items
}

func itemName(rec domain.RawRecord, index int, s domain.InferredSchema) (string, bool) {
	if s.Synthetic || s.ItemField == domain.SyntheticItemField {
		return fmt.Sprintf("Item_%d", index), true
	}

	v := rec.Get(s.ItemField)
	if !v.Truthy() {
		return "", false
	}
	name := strings.TrimSpace(v.Text())
	if name == "" || strings.EqualFold(name, "unknown") {
		return "", false
	}
	return name, true
}
