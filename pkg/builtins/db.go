package builtins

import (
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// dbModule is the multi-driver SQL surface described in SPEC_FULL.md §C13,
// grounded on sentra's internal/database/database.go DatabaseModule: a
// single `database/sql` handle per open connection, driver selected by a
// corvid-level driver-name string rather than sentra's credential struct.
func dbModule() *Module {
	conns := make(map[int64]*sql.DB)
	var nextHandle int64

	m := newModule("db")

	m.add("open", func(c object.Caller, args []object.Value) (object.Value, error) {
		driver, dsn, err := twoStrings(args, "db.open")
		if err != nil {
			return nil, err
		}
		driverName, err := resolveDriver(driver)
		if err != nil {
			return nil, err
		}
		conn, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "db.open")
		}
		nextHandle++
		conns[nextHandle] = conn
		return object.NewInt(nextHandle), nil
	})

	m.add("close", func(c object.Caller, args []object.Value) (object.Value, error) {
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("db.close() expects a handle")
		}
		conn, ok := conns[h.V.Int64()]
		if !ok {
			return nil, errors.New("ValueError: db.close: unknown handle")
		}
		delete(conns, h.V.Int64())
		return object.None, errors.Wrap(conn.Close(), "db.close")
	})

	m.add("query", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) < 2 {
			return nil, errArgCount("db.query", 2, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("db.query() expects a handle")
		}
		stmt, ok := args[1].(*object.Str)
		if !ok {
			return nil, typeErr("db.query() expects a str statement")
		}
		conn, ok := conns[h.V.Int64()]
		if !ok {
			return nil, errors.New("ValueError: db.query: unknown handle")
		}
		params, err := toSQLParams(args[2:])
		if err != nil {
			return nil, err
		}
		rows, err := conn.Query(stmt.Val, params...)
		if err != nil {
			return nil, errors.Wrap(err, "db.query")
		}
		defer rows.Close()
		return scanRows(rows)
	})

	m.add("exec", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) < 2 {
			return nil, errArgCount("db.exec", 2, len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("db.exec() expects a handle")
		}
		stmt, ok := args[1].(*object.Str)
		if !ok {
			return nil, typeErr("db.exec() expects a str statement")
		}
		conn, ok := conns[h.V.Int64()]
		if !ok {
			return nil, errors.New("ValueError: db.exec: unknown handle")
		}
		params, err := toSQLParams(args[2:])
		if err != nil {
			return nil, err
		}
		res, err := conn.Exec(stmt.Val, params...)
		if err != nil {
			return nil, errors.Wrap(err, "db.exec")
		}
		affected, _ := res.RowsAffected()
		return object.NewInt(affected), nil
	})

	return m
}

func resolveDriver(name string) (string, error) {
	switch name {
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	case "postgres", "pq", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "mssql", "sqlserver":
		return "sqlserver", nil
	default:
		return "", errors.Errorf("ValueError: db.open: unknown driver %q", name)
	}
}

func toSQLParams(args []object.Value) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *object.Str:
			out[i] = v.Val
		case *object.Int:
			out[i] = v.V.String()
		case *object.Float:
			out[i] = v.Val
		case *object.Bool:
			out[i] = v.Val
		case *object.NoneType:
			out[i] = nil
		default:
			return nil, typeErr("db: unsupported parameter type %s", a.Class().Name)
		}
	}
	return out, nil
}

func scanRows(rows *sql.Rows) (object.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "db.query")
	}
	var out []object.Value
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "db.query")
		}
		row := object.NewDict()
		for i, col := range cols {
			row.Set(noopCaller{}, object.StrIntern(col), sqlValueToObject(vals[i]))
		}
		out = append(out, row)
	}
	return object.NewList(out), rows.Err()
}

func sqlValueToObject(v interface{}) object.Value {
	switch t := v.(type) {
	case nil:
		return object.None
	case []byte:
		return object.NewStr(string(t))
	case string:
		return object.NewStr(t)
	case int64:
		return object.NewInt(t)
	case float64:
		return object.NewFloat(t)
	case bool:
		return object.FromBool(t)
	default:
		return object.NewStr("")
	}
}
