package store

import "fmt"

var (
	ErrCustomerNotFound  = fmt.Errorf("customer not found")
	ErrServerNotFound    = fmt.Errorf("server not found")
	ErrDuplicateCustomer = fmt.Errorf("customer already exists for this server and secret name")
)
