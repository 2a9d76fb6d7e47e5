package constants

import "fmt"

const (
	DataPath         = "./data"
	OrdersDbName     = "orders.db"
	DefaultAppID     = "com.wz.apple.paymentid"
	APIListenAddress = ":8080"

	DefaultSubjectPrefix = "paystore"

	DefaultPage     = 1
	DefaultPageSize = 20
)

const (
	StoreBackendBolt   = "bolt"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// Subjects used on the payment queue bus, relative to the configured prefix.
const (
	SubjectStatus       = "status"
	SubjectSubmit       = "submit"
	SubjectTransactions = "transactions"
	SubjectFinalize     = "finalize"
	SubjectReceipts     = "receipts"
)

const (
	CatalogProductsURLTempl = "%s/products?ids=%s"
)

// OrdersBucketName is the bolt bucket holding the orders of appID.
func OrdersBucketName(appID string) string {
	return fmt.Sprintf("WZStore_%s", appID)
}

// OrdersRedisPrefix is the redis key prefix holding the orders of appID.
func OrdersRedisPrefix(appID string) string {
	return fmt.Sprintf("paystore:%s:order:", appID)
}

func Subject(prefix, name string) string {
	return prefix + "." + name
}
