package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/pkg/database"
)

const customerColumns = `id, mikrotik_name, server_id, name, phone_number, profile, status,
	address, coordinates, odp_id, sub_area_id, custom_billing_day, created_at, updated_at`

// CustomerStore persists customers in Postgres. The unique index on
// (server_id, mikrotik_name) is the concurrency guard that keeps concurrent
// syncs of the same server from creating duplicates.
type CustomerStore struct {
	db *database.DB
}

func NewCustomerStore(db *database.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(row interface{ Scan(...interface{}) error }) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.MikrotikName, &c.ServerID, &c.Name, &c.PhoneNumber, &c.Profile,
		&c.Status, &c.Address, &c.Coordinates, &c.ODPID, &c.SubAreaID, &c.CustomBillingDay,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByNaturalKey looks a customer up by (server_id, mikrotik_name). With
// the unique index in place at most one row matches; without it the first
// match wins.
func (s *CustomerStore) FindByNaturalKey(serverID int, mikrotikName string) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE server_id = $1 AND mikrotik_name = $2 LIMIT 1`,
		serverID, mikrotikName,
	))
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer %d/%s: %w", serverID, mikrotikName, err)
	}
	return c, nil
}

func (s *CustomerStore) FindByID(id string) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer %s: %w", id, err)
	}
	return c, nil
}

// Create inserts a new customer, generating the uuid primary key when the
// caller left it empty. A unique-index violation on the natural key is
// reported as ErrDuplicateCustomer so the reconciler can converge to an
// update instead.
func (s *CustomerStore) Create(c *models.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.StatusActive
	}

	_, err := s.db.Exec(`
		INSERT INTO customers (id, mikrotik_name, server_id, name, phone_number, profile, status,
			address, coordinates, odp_id, sub_area_id, custom_billing_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.MikrotikName, c.ServerID, c.Name, c.PhoneNumber, c.Profile, c.Status,
		c.Address, c.Coordinates, c.ODPID, c.SubAreaID, c.CustomBillingDay)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicateCustomer
	}
	if err != nil {
		return fmt.Errorf("create customer %s: %w", c.MikrotikName, err)
	}
	return nil
}

// UpdateSyncFields writes the two router-authoritative fields and nothing
// else. Name, address, phone and coordinates stay local.
func (s *CustomerStore) UpdateSyncFields(id, profile, status string) error {
	_, err := s.db.Exec(
		`UPDATE customers SET profile = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		profile, status, id,
	)
	if err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	return nil
}

// Update writes the operator-editable fields from the CRUD surface.
func (s *CustomerStore) Update(c *models.Customer) error {
	_, err := s.db.Exec(`
		UPDATE customers SET name = $1, phone_number = $2, status = $3, address = $4,
			coordinates = $5, odp_id = $6, sub_area_id = $7, custom_billing_day = $8,
			updated_at = NOW()
		WHERE id = $9
	`, c.Name, c.PhoneNumber, c.Status, c.Address, c.Coordinates, c.ODPID, c.SubAreaID,
		c.CustomBillingDay, c.ID)
	if err != nil {
		return fmt.Errorf("update customer %s: %w", c.ID, err)
	}
	return nil
}

func (s *CustomerStore) FindAllByServer(serverID int) ([]models.Customer, error) {
	rows, err := s.db.Query(
		`SELECT `+customerColumns+` FROM customers WHERE server_id = $1 ORDER BY mikrotik_name`,
		serverID,
	)
	if err != nil {
		return nil, fmt.Errorf("list customers for server %d: %w", serverID, err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			continue
		}
		customers = append(customers, *c)
	}
	return customers, nil
}
