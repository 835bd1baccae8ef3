package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version   string    `json:"version" example:"1.0.0"`                  // Application version
}

// DBHealthResponse represents a database health check response
// @Description Database health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`                   // Health status
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`   // Timestamp of the check
	Connected bool          `json:"connected" example:"true"`                   // Database connection status
	Latency   time.Duration `json:"latency" swaggertype:"string" example:"1ms"` // Database ping latency
	Error     string        `json:"error,omitempty" example:""`                 // Error message if any
}

// QuotationListResponse wraps the quotation listing endpoint payload
// @Description Quotation listing response
type QuotationListResponse struct {
	Quotations []Quotation `json:"quotations"`
	Count      int         `json:"count" example:"3"`
}

// CreateQuotationRequest is the request body for opening a new quotation
// @Description Create quotation payload
type CreateQuotationRequest struct {
	SupplierName  string          `json:"supplier_name" example:"Moinho Paulista"`
	SupplierEmail string          `json:"supplier_email" example:"vendas@moinho.com.br"`
	Items         []QuotationItem `json:"items"`
}

// AuditTrailResponse wraps the audit trail endpoint payload
// @Description Audit trail response
type AuditTrailResponse struct {
	Entries []AuditEntry `json:"entries"`
	Count   int          `json:"count" example:"5"`
}

// ErrorResponse is a generic error payload
// @Description Error response
type ErrorResponse struct {
	Error string `json:"error" example:"quotation not found"`
}
