package history

import (
	"context"
	"fmt"
	"time"

	"paystore/internal/payment"

	"github.com/golang/glog"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config holds PostgreSQL connection settings
type Config struct {
	Host          string
	Port          string
	DB            string
	User          string
	Password      string
	RetentionDays int
}

// Record represents a journaled transition in the database
type Record struct {
	ID            int64  `json:"id" db:"id"`
	Type          string `json:"type" db:"type"`
	OrderID       string `json:"orderId" db:"order_id"`
	ProductID     string `json:"productId" db:"product_id"`
	TransactionID string `json:"transId" db:"trans_id"`
	Message       string `json:"message" db:"message"`
	Time          int64  `json:"time" db:"time"`
}

// QueryCondition represents conditions for querying journal records
type QueryCondition struct {
	Type      payment.EntryType `json:"type,omitempty"`
	OrderID   string            `json:"orderId,omitempty"`
	ProductID string            `json:"productId,omitempty"`
	StartTime int64             `json:"start_time,omitempty"`
	EndTime   int64             `json:"end_time,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}

// Journal persists payment transitions
type Journal struct {
	db            *sqlx.DB
	retention     time.Duration
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
}

var _ payment.Journal = (*Journal)(nil)

// Open connects to PostgreSQL, prepares the schema and starts the retention sweep
func Open(cfg Config) (*Journal, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DB)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		glog.Errorf("Failed to connect to PostgreSQL: %v", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		glog.Errorf("Failed to ping PostgreSQL: %v", err)
		db.Close()
		return nil, err
	}

	glog.Infof("Connected to PostgreSQL successfully")

	days := cfg.RetentionDays
	if days <= 0 {
		days = 30
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Journal{
		db:        db,
		retention: time.Duration(days) * 24 * time.Hour,
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := j.initSchema(); err != nil {
		glog.Errorf("Failed to initialize database schema: %v", err)
		j.Close()
		return nil, err
	}

	j.startCleanupRoutine()
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS payment_journal (
		id BIGSERIAL PRIMARY KEY,
		type VARCHAR(64) NOT NULL,
		order_id VARCHAR(255) NOT NULL DEFAULT '',
		product_id VARCHAR(255) NOT NULL DEFAULT '',
		trans_id VARCHAR(255) NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		time BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_journal_type ON payment_journal(type);
	CREATE INDEX IF NOT EXISTS idx_journal_order ON payment_journal(order_id);
	CREATE INDEX IF NOT EXISTS idx_journal_product ON payment_journal(product_id);
	CREATE INDEX IF NOT EXISTS idx_journal_time ON payment_journal(time);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return err
	}
	glog.Infof("Journal schema initialized successfully")
	return nil
}

// Append stores one transition
func (j *Journal) Append(ctx context.Context, entry payment.Entry) error {
	if entry.Type == "" {
		return fmt.Errorf("entry type cannot be empty")
	}
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO payment_journal (type, order_id, product_id, trans_id, message, time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := j.db.QueryRowContext(ctx, query, string(entry.Type), entry.OrderID, entry.ProductID,
		entry.TransactionID, entry.Message, ts.Unix()).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to store journal entry: %w", err)
	}

	glog.V(2).Infof("Stored journal entry %d, type: %s, order: %s", id, entry.Type, entry.OrderID)
	return nil
}

// buildWhere renders the filter part shared by QueryRecords and Count
func buildWhere(condition *QueryCondition) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}

	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}

	if condition.Type != "" {
		add(" AND type = $%d", string(condition.Type))
	}
	if condition.OrderID != "" {
		add(" AND order_id = $%d", condition.OrderID)
	}
	if condition.ProductID != "" {
		add(" AND product_id = $%d", condition.ProductID)
	}
	if condition.StartTime > 0 {
		add(" AND time >= $%d", condition.StartTime)
	}
	if condition.EndTime > 0 {
		add(" AND time <= $%d", condition.EndTime)
	}
	return where, args
}

// QueryRecords returns matching records, newest first
func (j *Journal) QueryRecords(ctx context.Context, condition *QueryCondition) ([]*Record, error) {
	if condition == nil {
		condition = &QueryCondition{}
	}
	if condition.Limit <= 0 {
		condition.Limit = 100
	}

	where, args := buildWhere(condition)
	query := "SELECT id, type, order_id, product_id, trans_id, message, time FROM payment_journal" + where
	query += " ORDER BY time DESC, id DESC"

	args = append(args, condition.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if condition.Offset > 0 {
		args = append(args, condition.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	glog.V(2).Infof("Executing query: %s with args: %v", query, args)

	var records []*Record
	if err := j.db.SelectContext(ctx, &records, query, args...); err != nil {
		glog.Errorf("Failed to query journal records: %v", err)
		return nil, err
	}
	return records, nil
}

// Count returns the number of records matching the condition
func (j *Journal) Count(ctx context.Context, condition *QueryCondition) (int64, error) {
	if condition == nil {
		condition = &QueryCondition{}
	}
	where, args := buildWhere(condition)

	var count int64
	if err := j.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM payment_journal"+where, args...); err != nil {
		glog.Errorf("Failed to get record count: %v", err)
		return 0, err
	}
	return count, nil
}

func (j *Journal) startCleanupRoutine() {
	j.cleanupTicker = time.NewTicker(24 * time.Hour)

	go func() {
		glog.Infof("Starting journal cleanup routine, retention: %s", j.retention)
		j.cleanupOldRecords()

		for {
			select {
			case <-j.cleanupTicker.C:
				j.cleanupOldRecords()
			case <-j.ctx.Done():
				glog.Infof("Journal cleanup routine stopped")
				return
			}
		}
	}()
}

func (j *Journal) cleanupOldRecords() {
	cutoff := time.Now().Add(-j.retention).Unix()

	result, err := j.db.ExecContext(j.ctx, "DELETE FROM payment_journal WHERE time < $1", cutoff)
	if err != nil {
		glog.Errorf("Failed to cleanup old journal records: %v", err)
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		glog.Warningf("Failed to get rows affected count: %v", err)
		return
	}
	glog.Infof("Cleaned up %d old journal records", rowsAffected)
}

// Close stops the cleanup routine and closes the database connection
func (j *Journal) Close() error {
	glog.Infof("Closing payment journal")

	if j.cleanupTicker != nil {
		j.cleanupTicker.Stop()
	}
	if j.cancel != nil {
		j.cancel()
	}
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// HealthCheck checks if the journal database is reachable
func (j *Journal) HealthCheck() error {
	if j.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := j.db.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %v", err)
	}
	return nil
}
