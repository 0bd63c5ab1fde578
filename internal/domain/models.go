package domain

// Product is a purchasable catalog entry. Price is in minor currency units.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Price       int64  `json:"price" yaml:"price"`
	Image       string `json:"image" yaml:"image"`
	Category    string `json:"category" yaml:"category"`
}

// OrderLine is one untrusted line of a client order request.
// It deliberately carries no price or name.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// PricedLine is a request line resolved against the catalog
type PricedLine struct {
	Product   Product
	Quantity  int64
	LineTotal int64
}

// PricedOrder is the server-computed view of an order. Never persisted.
type PricedOrder struct {
	Lines    []PricedLine
	Total    int64
	Currency string
}

// PaymentSession is what the client gets back after checkout
type PaymentSession struct {
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
}
