package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int            `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Role         string         `json:"role"`
	FullName     sql.NullString `json:"full_name"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Server is one Mikrotik router. Its id is referenced by customers, invoices
// and cache filenames; deleting a server does not cascade to customers.
type Server struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	IP             string    `json:"ip"`
	Port           int       `json:"port"`
	Username       string    `json:"username"`
	Password       string    `json:"-"`
	BillingDay     int       `json:"billing_day"`
	PaymentDueDays int       `json:"payment_due_days"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Customer statuses.
const (
	StatusActive   = "active"
	StatusIsolated = "isolated"
	StatusDisabled = "disabled"
)

// Customer is a PPPoE subscriber reconciled from a router secret. The natural
// key is (server_id, mikrotik_name); the uuid primary key is generated
// locally. Router data is authoritative only for profile and status; name,
// address, phone and coordinates are local metadata and never overwritten by
// a sync.
type Customer struct {
	ID               string         `json:"id"`
	MikrotikName     string         `json:"mikrotik_name"`
	ServerID         int            `json:"server_id"`
	Name             string         `json:"name"`
	PhoneNumber      sql.NullString `json:"phone_number"`
	Profile          string         `json:"profile"`
	Status           string         `json:"status"`
	Address          sql.NullString `json:"address"`
	Coordinates      sql.NullString `json:"coordinates"`
	ODPID            sql.NullString `json:"odp_id"`
	SubAreaID        sql.NullString `json:"sub_area_id"`
	CustomBillingDay sql.NullInt64  `json:"custom_billing_day"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Work order statuses.
const (
	WorkOrderOpen      = "open"
	WorkOrderCompleted = "completed"
	WorkOrderCancelled = "cancelled"
)

// WorkOrder is an installation job; completing it links the provisioned
// secret name to a customer row.
type WorkOrder struct {
	ID           string         `json:"id"`
	ServerID     int            `json:"server_id"`
	CustomerName string         `json:"customer_name"`
	SecretName   string         `json:"secret_name"`
	Profile      string         `json:"profile"`
	PhoneNumber  sql.NullString `json:"phone_number"`
	Address      sql.NullString `json:"address"`
	Status       string         `json:"status"`
	CompletedAt  sql.NullTime   `json:"completed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Invoice statuses.
const (
	InvoiceUnpaid    = "UNPAID"
	InvoicePaid      = "PAID"
	InvoiceCancelled = "CANCELLED"
	InvoiceInvalid   = "INVALID"
)

type Invoice struct {
	ID         int          `json:"id"`
	CustomerID string       `json:"customer_id"`
	ServerID   int          `json:"server_id"`
	Period     string       `json:"period"`
	Amount     float64      `json:"amount"`
	Status     string       `json:"status"`
	DueDate    time.Time    `json:"due_date"`
	PaidAt     sql.NullTime `json:"paid_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

// InvoiceHistory is the append-only audit trail of invoice status
// transitions.
type InvoiceHistory struct {
	ID        int            `json:"id"`
	InvoiceID int            `json:"invoice_id"`
	OldStatus sql.NullString `json:"old_status"`
	NewStatus string         `json:"new_status"`
	Note      sql.NullString `json:"note"`
	ChangedBy sql.NullInt64  `json:"changed_by"`
	CreatedAt time.Time      `json:"created_at"`
}
