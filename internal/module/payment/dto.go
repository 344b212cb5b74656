package payment

// CreatePaymentRequest is the payload for creating a payment record.
type CreatePaymentRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency"`
	Provider string  `json:"provider"`
}

// CreateCheckoutRequest selects a credit bundle for hosted checkout.
type CreateCheckoutRequest struct {
	Bundle string `json:"bundle" binding:"required"`
}

// CreatePaymentResponse returns the new record plus, for provider-backed
// payments, the client secret the frontend needs to complete the charge.
type CreatePaymentResponse struct {
	Payment      *Payment `json:"payment"`
	ClientSecret string   `json:"clientSecret,omitempty"`
}

// CheckoutResponse carries the hosted checkout page URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// TransitionResponse wraps a lifecycle transition result.
type TransitionResponse struct {
	Message string   `json:"message"`
	Payment *Payment `json:"payment"`
}

// ListQuery binds the admin list query string.
type ListQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ListMeta is the metadata block of the admin list response.
type ListMeta struct {
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	Status     string `json:"status"`
}

// ListResponse is the admin list envelope.
type ListResponse struct {
	Data []*Payment `json:"data"`
	Meta ListMeta   `json:"meta"`
}

// UserListPagination is the pagination block of the per-user history
// response.
type UserListPagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// UserListResponse is the per-user history envelope.
type UserListResponse struct {
	Payments   []*Payment         `json:"payments"`
	Pagination UserListPagination `json:"pagination"`
}
