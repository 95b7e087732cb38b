package domain

// Subscriber is the end customer being billed, as seen by this module.
// It is owned by the subscriber module and read through the mediator.
type Subscriber struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	// GatewayCustomerID references the customer record at the payment gateway
	GatewayCustomerID string `json:"gateway_customer_id"`
	// GatewayPaymentMethodID is the saved method used for off-session charges
	GatewayPaymentMethodID string `json:"gateway_payment_method_id"`
}
