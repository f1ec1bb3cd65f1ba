package constants

type ContextKey string

const (
	PoolKey     ContextKey = "pool"
	TxKey       ContextKey = "tx"
	ParamsKey   ContextKey = "params"
	LoggerKey   ContextKey = "logger"
	TenantIDKey ContextKey = "tenant_id"
	UserKey     ContextKey = "user"
)
