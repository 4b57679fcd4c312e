package catalog

import (
	"encoding/json"
	"net/http"
)

type productView struct {
	Item
	CourierFeeCents int    `json:"courier_fee_cents"`
	TotalDisplay    string `json:"total_display"`
}

// ListProducts handles GET /products. Prices include the courier fee in the
// display total so the website can render them without its own arithmetic.
func ListProducts(w http.ResponseWriter, r *http.Request) {
	views := make([]productView, 0, len(Items))
	for _, it := range Items {
		views = append(views, productView{
			Item:            it,
			CourierFeeCents: CourierFeeCents,
			TotalDisplay:    FormatRand(TotalCents(it)),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"products":         views,
		"courier_fee":      FormatRand(CourierFeeCents),
		"payment_note":     "EFT only. Banking details are provided at checkout in the chat.",
		"delivery_details": "Courier nationwide, 3-5 working days.",
	})
}
