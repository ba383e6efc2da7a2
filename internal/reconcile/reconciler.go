package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lumenisp/panel/internal/cache"
	"github.com/lumenisp/panel/internal/models"
	"github.com/lumenisp/panel/internal/routeros"
	"github.com/lumenisp/panel/internal/store"
	"github.com/lumenisp/panel/pkg/logger"
)

// CustomerStore is the slice of the relational layer the reconciler needs:
// lookup by natural key, create, sync-field update, list per server.
type CustomerStore interface {
	FindByNaturalKey(serverID int, mikrotikName string) (*models.Customer, error)
	Create(c *models.Customer) error
	Update(c *models.Customer) error
	UpdateSyncFields(id, profile, status string) error
	FindAllByServer(serverID int) ([]models.Customer, error)
}

type ServerStore interface {
	FindOrCreate(srv *models.Server) (*models.Server, error)
}

// FetchFunc fetches a resource live from a router. Wired to routeros.Fetch
// in production, replaced in tests.
type FetchFunc func(ctx context.Context, creds routeros.Credentials, resource string, timeout time.Duration) ([]routeros.Row, error)

// Reconciler merges freshly fetched router rows with the cache store and the
// customer table.
type Reconciler struct {
	fetch     FetchFunc
	cache     *cache.Store
	customers CustomerStore
	servers   ServerStore
	timeout   time.Duration
	logger    *logger.Logger
}

func New(fetch FetchFunc, cacheStore *cache.Store, customers CustomerStore, servers ServerStore, timeout time.Duration, log *logger.Logger) *Reconciler {
	if fetch == nil {
		fetch = routeros.Fetch
	}
	return &Reconciler{
		fetch:     fetch,
		cache:     cacheStore,
		customers: customers,
		servers:   servers,
		timeout:   timeout,
		logger:    log,
	}
}

// Result is what a sync returns to the HTTP layer: the (possibly enriched)
// rows, the snapshot timestamp, and the per-row upsert counters.
type Result struct {
	Timestamp string                   `json:"timestamp"`
	Data      []map[string]interface{} `json:"data"`
	Created   int                      `json:"created,omitempty"`
	Updated   int                      `json:"updated,omitempty"`
	Failed    int                      `json:"failed,omitempty"`
}

// Sync fetches one resource from the server and reconciles it.
//
// A fetch failure aborts the whole operation before any cache write. On
// success the raw snapshot is persisted first; for secrets the rows are then
// upserted into the customer table, re-read, merged back into the rows, and
// the snapshot is overwritten with the enriched version. Per-row upsert
// failures are counted and logged but never abort the batch.
func (r *Reconciler) Sync(ctx context.Context, srv models.Server, resource string) (*Result, error) {
	rows, err := r.fetch(ctx, routeros.Credentials{
		Host:     srv.IP,
		Port:     srv.Port,
		Username: srv.Username,
		Password: srv.Password,
	}, resource, r.timeout)
	if err != nil {
		return nil, err
	}

	generic := toGeneric(rows)
	snap, err := r.cache.Write(srv.ID, resource, generic)
	if err != nil {
		return nil, fmt.Errorf("persist %s snapshot: %w", resource, err)
	}

	result := &Result{Timestamp: snap.Timestamp, Data: generic}
	if resource != "secrets" {
		return result, nil
	}

	if _, err := r.servers.FindOrCreate(&srv); err != nil {
		return nil, fmt.Errorf("ensure server %d: %w", srv.ID, err)
	}

	for _, row := range rows {
		name := row["name"]
		if name == "" {
			continue
		}
		created, err := r.upsertSecret(srv.ID, name, row["profile"], routeros.ParseDisabled(row["disabled"]), row["comment"])
		if err != nil {
			result.Failed++
			r.logger.Warn("Secret upsert failed", "server_id", srv.ID, "secret", name, "error", err.Error())
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	enriched, err := r.enrich(srv.ID, generic)
	if err != nil {
		r.logger.Warn("Enrichment skipped", "server_id", srv.ID, "error", err.Error())
		return result, nil
	}

	snap, err = r.cache.Write(srv.ID, "secrets", enriched)
	if err != nil {
		return nil, fmt.Errorf("persist enriched snapshot: %w", err)
	}
	result.Timestamp = snap.Timestamp
	result.Data = enriched
	return result, nil
}

// upsertSecret is the shared find-or-create-or-update primitive. Updates
// touch only profile and status; creates default the customer name to the
// router comment, falling back to the secret name.
func (r *Reconciler) upsertSecret(serverID int, name, profile string, disabled bool, comment string) (created bool, err error) {
	status := models.StatusActive
	if disabled {
		status = models.StatusDisabled
	}

	existing, err := r.customers.FindByNaturalKey(serverID, name)
	if err == nil {
		if existing.Profile == profile && existing.Status == status {
			return false, nil
		}
		return false, r.customers.UpdateSyncFields(existing.ID, profile, status)
	}
	if err != store.ErrCustomerNotFound {
		return false, err
	}

	realName := comment
	if realName == "" {
		realName = name
	}
	err = r.customers.Create(&models.Customer{
		MikrotikName: name,
		ServerID:     serverID,
		Name:         realName,
		Profile:      profile,
		Status:       status,
	})
	if err == store.ErrDuplicateCustomer {
		// Lost a race with a concurrent sync of the same server; converge.
		existing, ferr := r.customers.FindByNaturalKey(serverID, name)
		if ferr != nil {
			return false, ferr
		}
		return false, r.customers.UpdateSyncFields(existing.ID, profile, status)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LinkSecret attaches a freshly provisioned secret to the customer table;
// used when an installation work order completes. Same upsert primitive as
// the sync path, with the work order as the data source. Local metadata is
// filled in only when the customer row is created by this call.
func (r *Reconciler) LinkSecret(order models.WorkOrder) (*models.Customer, error) {
	created, err := r.upsertSecret(order.ServerID, order.SecretName, order.Profile, false, order.CustomerName)
	if err != nil {
		return nil, err
	}

	customer, err := r.customers.FindByNaturalKey(order.ServerID, order.SecretName)
	if err != nil {
		return nil, err
	}
	if created && r.fillContact(customer, order) {
		if err := r.customers.Update(customer); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

func (r *Reconciler) fillContact(c *models.Customer, order models.WorkOrder) bool {
	changed := false
	if order.PhoneNumber.Valid && !c.PhoneNumber.Valid {
		c.PhoneNumber = order.PhoneNumber
		changed = true
	}
	if order.Address.Valid && !c.Address.Valid {
		c.Address = order.Address
		changed = true
	}
	return changed
}

// enrich merges customer metadata into the router rows. Rows without a
// matching customer pass through unchanged.
func (r *Reconciler) enrich(serverID int, rows []map[string]interface{}) ([]map[string]interface{}, error) {
	customers, err := r.customers.FindAllByServer(serverID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Customer, len(customers))
	for i := range customers {
		c := &customers[i]
		if _, seen := byName[c.MikrotikName]; !seen {
			byName[c.MikrotikName] = c
		}
	}

	enriched := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		c, ok := byName[name]
		if !ok {
			enriched = append(enriched, row)
			continue
		}

		merged := make(map[string]interface{}, len(row)+5)
		for k, v := range row {
			merged[k] = v
		}
		merged["realName"] = c.Name
		merged["whatsapp"] = nullString(c.PhoneNumber)
		merged["address"] = nullString(c.Address)
		merged["subAreaId"] = nullString(c.SubAreaID)
		merged["coordinates"] = nullString(c.Coordinates)
		enriched = append(enriched, merged)
	}
	return enriched, nil
}

func nullString(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}

func toGeneric(rows []routeros.Row) []map[string]interface{} {
	generic := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]interface{}, len(row))
		for k, v := range row {
			m[k] = v
		}
		generic = append(generic, m)
	}
	return generic
}
