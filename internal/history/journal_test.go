package history

import (
	"context"
	"os"
	"testing"
	"time"

	"paystore/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := Config{Host: "localhost", Port: "5432", DB: "paystore_test", User: "postgres", Password: "password"}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Password = v
	}
	return cfg
}

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(testConfig())
	if err != nil {
		t.Skipf("Skipping test - PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() {
		j.db.Exec("DELETE FROM payment_journal WHERE order_id LIKE 'test%'")
		j.Close()
	})
	return j
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(&QueryCondition{})
	assert.Equal(t, " WHERE 1=1", where)
	assert.Empty(t, args)

	where, args = buildWhere(&QueryCondition{
		Type:      payment.EntryCompleted,
		ProductID: "gold",
		StartTime: 10,
	})
	assert.Equal(t, " WHERE 1=1 AND type = $1 AND product_id = $2 AND time >= $3", where)
	assert.Equal(t, []interface{}{"ORDER_COMPLETED", "gold", int64(10)}, args)
}

func TestAppendAndQuery(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, j.Append(ctx, payment.Entry{Type: payment.EntryPending, OrderID: "test-o1", ProductID: "gold", Time: now.Add(-time.Minute)}))
	require.NoError(t, j.Append(ctx, payment.Entry{Type: payment.EntryCompleted, OrderID: "test-o1", ProductID: "gold", TransactionID: "t1", Time: now}))
	require.NoError(t, j.Append(ctx, payment.Entry{Type: payment.EntryPending, OrderID: "test-o2", ProductID: "silver"}))

	records, err := j.QueryRecords(ctx, &QueryCondition{OrderID: "test-o1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, string(payment.EntryCompleted), records[0].Type)
	assert.Equal(t, "t1", records[0].TransactionID)
	assert.Equal(t, string(payment.EntryPending), records[1].Type)

	count, err := j.Count(ctx, &QueryCondition{Type: payment.EntryPending, ProductID: "silver"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	limited, err := j.QueryRecords(ctx, &QueryCondition{OrderID: "test-o1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, string(payment.EntryPending), limited[0].Type)
}

func TestAppendRejectsEmptyType(t *testing.T) {
	j := openTestJournal(t)
	err := j.Append(context.Background(), payment.Entry{OrderID: "test-o3"})
	assert.Error(t, err)
	assert.NoError(t, j.HealthCheck())
}
