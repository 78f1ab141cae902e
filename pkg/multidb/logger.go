package multidb

import (
	"context"

	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/yusufsyaifudin/ylog"
)

// QueryLogger sends sqldb-logger output into ylog. Query errors are logged as error, the rest as debug.
type QueryLogger struct {
	Label string
}

var _ sqldblogger.Logger = (*QueryLogger)(nil)

func (q *QueryLogger) Log(ctx context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	if level == sqldblogger.LevelError {
		ylog.Error(ctx, msg, ylog.KV("db", q.Label), ylog.KV("sql", data))
		return
	}

	ylog.Debug(ctx, msg, ylog.KV("db", q.Label), ylog.KV("sql", data))
}
