package bookings

type CreateBookingRequest struct {
	EventID      string            `json:"event_id" binding:"required,uuid"`
	LineItems    []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	Customer     CustomerRequest   `json:"customer" binding:"required"`
	DiscountCode string            `json:"discount_code" binding:"omitempty,max=64"`
}

type LineItemRequest struct {
	CategoryID string `json:"category_id" binding:"required,max=64"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,max=20"`
}

type SubmitPaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required,max=64"`
}

type ListBookingsQuery struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}
