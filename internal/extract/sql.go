package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	goora "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"
)

const (
	DriverOracle = "oracle"
	DriverSQLite = "sqlite"
)

// SQLSource описывает реляционный источник: драйвер, строку подключения и запрос
type SQLSource struct {
	Driver     string
	DataSource string
	Query      string
}

// OracleDataSource собирает URL go-ora из "host:port/service" и учётных данных.
// Готовый URL oracle://... возвращается как есть.
func OracleDataSource(user, password, dsn string) (string, error) {
	if strings.HasPrefix(dsn, "oracle://") {
		return dsn, nil
	}

	hostPort, service, _ := strings.Cut(dsn, "/")
	host, portStr, found := strings.Cut(hostPort, ":")
	port := 1521
	if found {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", fmt.Errorf("invalid oracle dsn %q: bad port", dsn)
		}
		port = p
	}
	if host == "" || service == "" {
		return "", fmt.Errorf("invalid oracle dsn %q: want host:port/service", dsn)
	}
	return goora.BuildUrl(host, port, service, user, password, nil), nil
}

// SQL выполняет запрос и возвращает строки с колонками в порядке результата.
// Соединение открывается и закрывается внутри вызова.
func SQL(ctx context.Context, src SQLSource) (rows []Row, err error) {
	defer guard(src.Query, FormatOracleSQL, &err)

	db, err := sql.Open(src.Driver, src.DataSource)
	if err != nil {
		return nil, newExtractionError(src.Query, FormatOracleSQL, err)
	}
	defer db.Close()

	result, err := db.QueryContext(ctx, src.Query)
	if err != nil {
		return nil, newExtractionError(src.Query, FormatOracleSQL, err)
	}
	defer result.Close()

	columns, err := result.Columns()
	if err != nil {
		return nil, newExtractionError(src.Query, FormatOracleSQL, err)
	}

	for result.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := result.Scan(ptrs...); err != nil {
			return nil, newExtractionError(src.Query, FormatOracleSQL, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rows = append(rows, Row{Columns: columns, Values: values})
	}
	if err := result.Err(); err != nil {
		return nil, newExtractionError(src.Query, FormatOracleSQL, err)
	}
	return rows, nil
}
