package returns

import (
	"github.com/google/uuid"

	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	shippingapp "github.com/storefront/backend/internal/application/shipping"
	returnsdomain "github.com/storefront/backend/internal/domain/returns"
)

// StartRequest identifies the order a return is opened against
type StartRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// SelectItemRequest marks a purchased line for return
type SelectItemRequest struct {
	LineID   uuid.UUID `json:"lineId" binding:"required"`
	Quantity int64     `json:"quantity" binding:"required"`
}

// LineResponse is the API view of one returnable order line
type LineResponse struct {
	LineID          uuid.UUID `json:"lineId"`
	ItemRef         string    `json:"itemRef"`
	Name            string    `json:"name"`
	PurchasedQty    int64     `json:"purchasedQty"`
	AlreadyReturned int64     `json:"alreadyReturned"`
	ReturnableQty   int64     `json:"returnableQty"`
	SelectedQty     int64     `json:"selectedQty"`
	UnitPrice       string    `json:"unitPrice"`
	WeightGrams     int64     `json:"weightGrams"`
}

// StepStatus reports one wizard step's completion predicate
type StepStatus struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// LabelResponse is the API view of the issued return label
type LabelResponse struct {
	RateID string `json:"rateId"`
	URL    string `json:"url"`
}

// WizardResponse is the API view of an open return wizard
type WizardResponse struct {
	OrderID         string                      `json:"orderId"`
	CurrentStep     int                         `json:"currentStep"`
	CurrentStepName string                      `json:"currentStepName"`
	Steps           []StepStatus                `json:"steps"`
	Lines           []LineResponse              `json:"lines"`
	Rates           shippingapp.RatesResponse   `json:"rates"`
	Intent          *checkoutapp.IntentResponse `json:"intent,omitempty"`
	Label           *LabelResponse              `json:"label,omitempty"`
	Instructions    string                      `json:"instructions,omitempty"`
	Completed       bool                        `json:"completed"`
}

// CompleteResponse is the result of finalizing a return
type CompleteResponse struct {
	OrderID string `json:"orderId"`
}

func toLineResponses(wizard *returnsdomain.Wizard) []LineResponse {
	selections := wizard.Selections()
	lines := wizard.Lines()
	out := make([]LineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineResponse{
			LineID:          l.LineID,
			ItemRef:         l.ItemRef,
			Name:            l.Name,
			PurchasedQty:    l.PurchasedQty,
			AlreadyReturned: l.AlreadyReturned,
			ReturnableQty:   l.ReturnableQty(),
			SelectedQty:     selections[l.LineID],
			UnitPrice:       l.UnitPrice.StringFixed(2),
			WeightGrams:     l.UnitWeight.GramsInt(),
		})
	}
	return out
}

func toLabelResponse(label *returnsdomain.Label) *LabelResponse {
	if label == nil {
		return nil
	}
	return &LabelResponse{RateID: label.RateID, URL: label.URL}
}
