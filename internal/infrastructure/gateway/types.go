package gateway

// stockResponse is the stock service's availability payload
type stockResponse struct {
	ItemRef   string `json:"itemRef"`
	Available int64  `json:"available"`
}

// promotionRequest asks the promotion service to resolve a code
type promotionRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
	Currency string `json:"currency"`
}

// promotionResponse is the resolved promotion
type promotionResponse struct {
	Valid    bool   `json:"valid"`
	Discount string `json:"discount"`
	Message  string `json:"message"`
}

// wireAddress is the address shape shared by the verification, rating and
// order services.
type wireAddress struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// validateAddressRequest asks the verification service to check an address
type validateAddressRequest struct {
	Address wireAddress `json:"address"`
}

// validateAddressResponse is the verification verdict
type validateAddressResponse struct {
	Valid      bool         `json:"valid"`
	Normalized *wireAddress `json:"normalized,omitempty"`
	Messages   []string     `json:"messages,omitempty"`
}

// quoteRequest asks the rating service for carrier offers
type quoteRequest struct {
	Destination wireAddress `json:"destination"`
	WeightGrams int64       `json:"weightGrams"`
}

// quoteResponse is the rating service's offer list
type quoteResponse struct {
	Rates []wireRate `json:"rates"`
}

// wireRate is one carrier offer
type wireRate struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Service  string `json:"service"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// labelRequest buys a label for a quoted rate
type labelRequest struct {
	RateID string `json:"rateId"`
}

// labelResponse is the issued label
type labelResponse struct {
	URL string `json:"url"`
}

// orderLineRequest is one cart line in an order submission
type orderLineRequest struct {
	ItemRef   string            `json:"itemRef"`
	Name      string            `json:"name"`
	Quantity  int64             `json:"quantity"`
	Options   map[string]string `json:"options,omitempty"`
	UnitPrice string            `json:"unitPrice"`
}

// createOrderRequest is the order submission payload
type createOrderRequest struct {
	Lines                 []orderLineRequest `json:"lines"`
	PromotionCode         string             `json:"promotionCode,omitempty"`
	Subtotal              string             `json:"subtotal"`
	Discount              string             `json:"discount"`
	ShippingCost          string             `json:"shippingCost"`
	Total                 string             `json:"total"`
	Currency              string             `json:"currency"`
	Address               wireAddress        `json:"address"`
	RateQuoteID           string             `json:"rateQuoteId"`
	PaymentConfirmationID string             `json:"paymentConfirmationId"`
}

// createOrderResponse is the created order
type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

// historicalOrderResponse is a completed order for returns eligibility
type historicalOrderResponse struct {
	OrderID string                `json:"orderId"`
	ShipTo  wireAddress           `json:"shipTo"`
	Lines   []historicalOrderLine `json:"lines"`
}

// historicalOrderLine is one purchased line with its return history
type historicalOrderLine struct {
	LineID          string `json:"lineId"`
	ItemRef         string `json:"itemRef"`
	Name            string `json:"name"`
	PurchasedQty    int64  `json:"purchasedQty"`
	AlreadyReturned int64  `json:"alreadyReturned"`
	UnitPrice       string `json:"unitPrice"`
	Currency        string `json:"currency"`
	WeightGrams     int64  `json:"weightGrams"`
}

// returnLineRequest is one returned line in a return submission
type returnLineRequest struct {
	LineID   string `json:"lineId"`
	ItemRef  string `json:"itemRef"`
	Quantity int64  `json:"quantity"`
}

// createReturnRequest is the return submission payload
type createReturnRequest struct {
	Lines                 []returnLineRequest `json:"lines"`
	LabelURL              string              `json:"labelUrl"`
	PaymentConfirmationID string              `json:"paymentConfirmationId,omitempty"`
}
