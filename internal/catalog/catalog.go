// Package catalog holds the fixed supporter-merchandise price list sold
// through the chat widget and the public products endpoint.
package catalog

import "fmt"

// CourierFeeCents is the flat nationwide courier fee added to every order.
const CourierFeeCents = 6000

// Item is a single catalog entry. Prices are in South African cents.
type Item struct {
	Value      string `json:"value"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Desc       string `json:"description"`
}

// Items is the fixed catalog, in display order.
var Items = []Item{
	{Value: "product_kit", Name: "Supporter Starter Kit", PriceCents: 42000, Desc: "Branded tote, cap, sticker pack and info booklet"},
	{Value: "product_tshirt", Name: "MzansiProLife T-Shirt", PriceCents: 25000, Desc: "100% cotton, sizes S-3XL"},
	{Value: "product_cap", Name: "Embroidered Cap", PriceCents: 15000, Desc: "Adjustable, one size"},
	{Value: "product_hoodie", Name: "Winter Hoodie", PriceCents: 52000, Desc: "Fleece-lined, sizes S-3XL"},
}

// Lookup returns the item for an option value.
func Lookup(value string) (Item, bool) {
	for _, it := range Items {
		if it.Value == value {
			return it, true
		}
	}
	return Item{}, false
}

// TotalCents is the item price plus the courier fee.
func TotalCents(it Item) int {
	return it.PriceCents + CourierFeeCents
}

// FormatRand renders cents as a rand amount, omitting cents when whole.
func FormatRand(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("R%d", cents/100)
	}
	return fmt.Sprintf("R%d.%02d", cents/100, cents%100)
}
