package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// QueryParams narrows and pages a table read. Where and OrderBy are SQL
// fragments without their keywords and may refer to the entry's field names.
// A zero Limit returns every matching row.
type QueryParams struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

// DataReader reads entries back from a database a DataRecorder produced.
type DataReader interface {
	// MapTable binds a table to the entry struct its rows decode into.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped table names, sorted.
	ListTables() []string

	// Query returns one pointer per matching row together with the number of
	// rows that match before paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]reflect.Type
}

// NewReader opens a recorded database file.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:     db,
		tables: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if !tableNamePattern.MatchString(tableName) {
		panic(fmt.Sprintf("invalid table name %q", tableName))
	}

	entryType := reflect.TypeOf(sampleEntry)
	if entryType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("table %s: entry must be a struct, got %s",
			tableName, entryType))
	}

	r.tables[tableName] = entryType
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	filter := ""
	if params.Where != "" {
		filter = " WHERE " + params.Where
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+quoteIdent(tableName)+filter,
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectStatement(tableName, entryType, filter, params),
		params.Args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", tableName, err)
	}
	defer rows.Close()

	entries, err := decodeRows(rows, entryType)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", tableName, err)
	}

	return entries, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// selectStatement names every column of the entry explicitly so that rows
// decode positionally into the struct fields.
func selectStatement(
	table string,
	entryType reflect.Type,
	filter string,
	params QueryParams,
) string {
	var b strings.Builder

	b.WriteString("SELECT ")

	for i := 0; i < entryType.NumField(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(quoteIdent(entryType.Field(i).Name))
	}

	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table))
	b.WriteString(filter)

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	return b.String()
}

func decodeRows(rows *sql.Rows, entryType reflect.Type) ([]any, error) {
	var entries []any

	for rows.Next() {
		entry := reflect.New(entryType)
		fields := make([]any, entryType.NumField())

		for i := range fields {
			fields[i] = entry.Elem().Field(i).Addr().Interface()
		}

		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}

		entries = append(entries, entry.Interface())
	}

	return entries, rows.Err()
}
