package schema

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Column describes a single column of a warehouse table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Snapshot is an immutable view of the warehouse schema. Table names are
// stored lowercase; column order follows the warehouse's ordinal positions.
type Snapshot struct {
	LoadedAt time.Time           `json:"loaded_at"`
	Source   string              `json:"source"`
	Tables   map[string][]Column `json:"tables"`
}

// TableNames returns the snapshot's table names in sorted order.
func (s Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns the columns for a table, matching case-insensitively.
func (s Snapshot) Columns(table string) ([]Column, bool) {
	cols, ok := s.Tables[strings.ToLower(table)]
	return cols, ok
}

// HasTable reports whether the snapshot knows the given table.
func (s Snapshot) HasTable(table string) bool {
	_, ok := s.Tables[strings.ToLower(table)]
	return ok
}

// ColumnNames returns the column names for a table, or nil when unknown.
func (s Snapshot) ColumnNames(table string) []string {
	cols, ok := s.Columns(table)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	return names
}

// Source loads table metadata from a live warehouse connection.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]Column, error)
}

// FallbackTable is the table assumed to exist when no schema can be loaded.
const FallbackTable = "entity_trade_header"

// FallbackSnapshot returns the built-in snapshot used when neither the
// warehouse nor the disk cache can provide one.
func FallbackSnapshot() Snapshot {
	return Snapshot{
		LoadedAt: time.Now().UTC(),
		Source:   "fallback",
		Tables: map[string][]Column{
			FallbackTable: {
				{Name: "deal_num", DataType: "BIGINT"},
				{Name: "tran_num", DataType: "BIGINT"},
				{Name: "trade_date", DataType: "DATE"},
				{Name: "currency", DataType: "VARCHAR"},
				{Name: "amount", DataType: "DOUBLE"},
				{Name: "volume", DataType: "DOUBLE"},
				{Name: "price", DataType: "DOUBLE"},
				{Name: "trader", DataType: "VARCHAR"},
				{Name: "buy_sell", DataType: "VARCHAR"},
				{Name: "status", DataType: "VARCHAR"},
			},
		},
	}
}
