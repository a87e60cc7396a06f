package order

import "time"

type Item struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type ShippingInfo struct {
	Name    string `json:"shippingName"`
	Email   string `json:"shippingEmail"`
	Phone   string `json:"shippingPhone"`
	Address string `json:"shippingAddress"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Total         float64       `json:"total"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	// ChapaTxRef is the provider's transaction reference, set once payment
	// is initiated. The order ID doubles as the reference when the
	// provider never returns a distinct one.
	ChapaTxRef *string      `json:"chapaTxRef"`
	Shipping   ShippingInfo `json:"shipping"`
	Items      []Item       `json:"items"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// PaymentRefCandidates returns the transaction references to try when
// reconciling payment state, in priority order: the stored provider
// reference first, then the order's own identifier. The fallback covers
// payments initiated with the order ID as tx_ref.
func (o *Order) PaymentRefCandidates() []string {
	refs := make([]string, 0, 2)
	if o.ChapaTxRef != nil && *o.ChapaTxRef != "" {
		refs = append(refs, *o.ChapaTxRef)
	}
	if len(refs) == 0 || refs[0] != o.ID {
		refs = append(refs, o.ID)
	}
	return refs
}
