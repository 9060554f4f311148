package dto

// ConfirmPaymentRequest is sent by the client after the processor confirmed the payment.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmPaymentResponse acknowledges a confirmation.
type ConfirmPaymentResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId"`
	AlreadyPaid bool   `json:"alreadyPaid,omitempty"`
}

// WebhookResponse acknowledges a processor delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse carries the message of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
