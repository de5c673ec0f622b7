package casbin

import (
	"database/sql"
	"fmt"

	sqladapter "github.com/Blank-Xu/sql-adapter"
)

const DefaultTableName = "casbin_rule"

// NewSQLAdapter stores policies in tableName of sqlDB. driverName is the
// database/sql driver name used to pick the SQL dialect.
func NewSQLAdapter(sqlDB *sql.DB, driverName, tableName string) (*sqladapter.Adapter, error) {
	if tableName == "" {
		tableName = DefaultTableName
	}

	adapter, err := sqladapter.NewAdapter(sqlDB, driverName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin sql adapter: %w", err)
	}

	return adapter, nil
}
