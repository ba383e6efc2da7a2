package store

import (
	"database/sql"
	"fmt"

	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/pkg/database"
)

const serverColumns = `id, name, ip, port, username, password, billing_day, payment_due_days,
	created_at, updated_at`

type ServerStore struct {
	db *database.DB
}

func NewServerStore(db *database.DB) *ServerStore {
	return &ServerStore{db: db}
}

func scanServer(row interface{ Scan(...interface{}) error }) (*models.Server, error) {
	var srv models.Server
	err := row.Scan(&srv.ID, &srv.Name, &srv.IP, &srv.Port, &srv.Username, &srv.Password,
		&srv.BillingDay, &srv.PaymentDueDays, &srv.CreatedAt, &srv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &srv, nil
}

func (s *ServerStore) FindByID(id int) (*models.Server, error) {
	srv, err := scanServer(s.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find server %d: %w", id, err)
	}
	return srv, nil
}

func (s *ServerStore) FindAll() ([]models.Server, error) {
	rows, err := s.db.Query(`SELECT ` + serverColumns + ` FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			continue
		}
		servers = append(servers, *srv)
	}
	return servers, nil
}

// FindOrCreate ensures a server row exists for the id supplied by a sync
// request, seeding it with whatever metadata the caller sent. An existing
// row is left untouched.
func (s *ServerStore) FindOrCreate(srv *models.Server) (*models.Server, error) {
	existing, err := s.FindByID(srv.ID)
	if err == nil {
		return existing, nil
	}
	if err != ErrServerNotFound {
		return nil, err
	}

	if srv.Port == 0 {
		srv.Port = 8728
	}
	_, err = s.db.Exec(`
		INSERT INTO servers (id, name, ip, port, username, password)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, srv.ID, srv.Name, srv.IP, srv.Port, srv.Username, srv.Password)
	if err != nil {
		return nil, fmt.Errorf("create server %d: %w", srv.ID, err)
	}

	// The explicit id bypasses the serial sequence; advance it so the next
	// plain Create does not draw an id this insert already took.
	_, err = s.db.Exec(`SELECT setval('servers_id_seq', GREATEST((SELECT MAX(id) FROM servers), 1))`)
	if err != nil {
		return nil, fmt.Errorf("advance server id sequence: %w", err)
	}

	return s.FindByID(srv.ID)
}

func (s *ServerStore) Create(srv *models.Server) (int, error) {
	if srv.Port == 0 {
		srv.Port = 8728
	}
	if srv.BillingDay == 0 {
		srv.BillingDay = 1
	}
	if srv.PaymentDueDays == 0 {
		srv.PaymentDueDays = 7
	}

	var id int
	err := s.db.QueryRow(`
		INSERT INTO servers (name, ip, port, username, password, billing_day, payment_due_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`, srv.Name, srv.IP, srv.Port, srv.Username, srv.Password, srv.BillingDay, srv.PaymentDueDays).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create server: %w", err)
	}
	return id, nil
}

func (s *ServerStore) Update(srv *models.Server) error {
	_, err := s.db.Exec(`
		UPDATE servers SET name = $1, ip = $2, port = $3, username = $4,
			password = COALESCE(NULLIF($5, ''), password),
			billing_day = $6, payment_due_days = $7, updated_at = NOW()
		WHERE id = $8
	`, srv.Name, srv.IP, srv.Port, srv.Username, srv.Password, srv.BillingDay,
		srv.PaymentDueDays, srv.ID)
	if err != nil {
		return fmt.Errorf("update server %d: %w", srv.ID, err)
	}
	return nil
}

// Delete removes the server row only. Customers keep their server_id and are
// orphaned on purpose; OrphanedCustomerCount lets the caller log a warning.
func (s *ServerStore) Delete(id int) error {
	_, err := s.db.Exec(`DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete server %d: %w", id, err)
	}
	return nil
}

func (s *ServerStore) OrphanedCustomerCount(serverID int) int {
	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM customers WHERE server_id = $1`, serverID).Scan(&count)
	return count
}
