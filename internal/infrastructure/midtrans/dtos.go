package midtrans

// Snap transaction creation request/response shapes, per the Midtrans Snap
// API. Only the fields this service uses are modeled.

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type snapCustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
}

type snapChargeRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	ItemDetails        []snapItemDetail       `json:"item_details,omitempty"`
	CustomerDetails    *snapCustomerDetails   `json:"customer_details,omitempty"`
}

type snapChargeResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type transactionStatusResponse struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
}

type gatewayErrorResponse struct {
	StatusCode    string   `json:"status_code"`
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}
