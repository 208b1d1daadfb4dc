package constants

type contextKey string

const (
	TxKey     contextKey = "tx"
	DBKey     contextKey = "db"
	LoggerKey contextKey = "logger"
	RunIDKey  contextKey = "run_id"
)
