// Package schema guesses which fields of ad-hoc market records carry the item
// identifier, the price and the demand measure.
//
// Detection inspects field presence on the first record of a sample only.
// Value validity is enforced later, during aggregation.
package schema

import (
	"agrimarket/internal/domain"
)

// ItemCandidates are probed in order for the item identifier.
var ItemCandidates = []string{
	"name",
	"product_name",
	"productName",
	"commodity_name",
	"commodityName",
	"commodity",
	"item",
	"item_name",
	"itemName",
	"crop",
	"crop_name",
	"cropName",
	"product",
	"variety",
	"title",
}

// PriceCandidates are probed in order for the price field.
var PriceCandidates = []string{
	"price",
	"modal_price",
	"modalPrice",
	"avg_price",
	"average_price",
	"averagePrice",
	"unit_price",
	"unitPrice",
	"market_price",
	"marketPrice",
	"current_price",
	"currentPrice",
	"todayPrice",
	"rate",
	"cost",
	"amount",
}

// DemandCandidates are probed in order for the demand field.
var DemandCandidates = []string{
	"demand",
	"quantity",
	"qty",
	"arrivals",
	"arrival_quantity",
	"arrivalQuantity",
	"volume",
	"sales",
	"sold",
	"quantity_sold",
	"quantitySold",
	"orders",
	"stock",
}

// Inferencer detects an InferredSchema from a record sample.
type Inferencer struct {
	itemCandidates   []string
	priceCandidates  []string
	demandCandidates []string
}

// NewInferencer creates an Inferencer using the default candidate lists.
func NewInferencer() *Inferencer {
	return &Inferencer{
		itemCandidates:   ItemCandidates,
		priceCandidates:  PriceCandidates,
		demandCandidates: DemandCandidates,
	}
}

// NewInferencerWithCandidates creates an Inferencer with custom candidate lists.
// A nil list falls back to the default for that role.
func NewInferencerWithCandidates(item, price, demand []string) *Inferencer {
	inf := NewInferencer()
	if item != nil {
		inf.itemCandidates = item
	}
	if price != nil {
		inf.priceCandidates = price
	}
	if demand != nil {
		inf.demandCandidates = demand
	}
	return inf
}

// Infer returns the schema for a sample. It never fails: with no recognizable
// identifier field, the schema points at the synthetic item key.
func (inf *Inferencer) Infer(sample []domain.RawRecord) domain.InferredSchema {
	var first domain.RawRecord
	if len(sample) > 0 {
		first = sample[0]
	}

	s := domain.InferredSchema{}

	if f, ok := firstPresent(first, inf.itemCandidates); ok {
		s.ItemField = f
	} else {
		s.ItemField = domain.SyntheticItemField
		s.Synthetic = true
	}

	if f, ok := firstPresent(first, inf.priceCandidates); ok {
		s.PriceField = &f
	}
	if f, ok := firstPresent(first, inf.demandCandidates); ok {
		s.DemandField = &f
	}

	return s
}

// Infer runs the default Inferencer.
func Infer(sample []domain.RawRecord) domain.InferredSchema {
	return NewInferencer().Infer(sample)
}

func firstPresent(rec domain.RawRecord, candidates []string) (string, bool) {
	if rec == nil {
		return "", false
	}
	for _, c := range candidates {
		if rec.Has(c) {
			return c, true
		}
	}
	return "", false
}
