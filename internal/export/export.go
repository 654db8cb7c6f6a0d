package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/querydesk/querydesk/internal/storage"
	"github.com/querydesk/querydesk/internal/warehouse"
)

// Info describes an uploaded export.
type Info struct {
	Key      string `json:"key"`
	Size     int64  `json:"size_bytes"`
	RowCount int    `json:"row_count"`
}

// Service writes query results to the object store as parquet files.
type Service struct {
	store  storage.ObjectStore
	prefix string
	logger *slog.Logger
}

func NewService(store storage.ObjectStore, prefix string, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, prefix: prefix, logger: logger}, nil
}

// Export encodes a result as parquet and uploads it under a date-partitioned
// key. Every column is written as a string, matching the stringified cells of
// the result.
func (s *Service) Export(ctx context.Context, result warehouse.Result) (Info, error) {
	if len(result.Columns) == 0 {
		return Info{}, fmt.Errorf("result has no columns")
	}

	data, err := Encode(result)
	if err != nil {
		return Info{}, err
	}

	key := s.objectKey()
	info, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return Info{}, fmt.Errorf("upload export: %w", err)
	}

	s.logger.InfoContext(ctx, "result exported", "key", info.Key, "rows", len(result.Rows), "bytes", info.Size)
	return Info{Key: info.Key, Size: info.Size, RowCount: len(result.Rows)}, nil
}

func (s *Service) objectKey() string {
	now := time.Now().UTC()
	name := fmt.Sprintf("%s.parquet", uuid.NewString())
	return path.Join(s.prefix, now.Format("2006/01/02"), name)
}

// Encode writes a result as a parquet file with one UTF-8 column per result
// column.
func Encode(result warehouse.Result) ([]byte, error) {
	group := parquet.Group{}
	for _, col := range result.Columns {
		group[col] = parquet.String()
	}
	pschema := parquet.NewSchema("query_result", group)

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]string](buf, pschema)
	rows := make([]map[string]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		out := make(map[string]string, len(result.Columns))
		for _, col := range result.Columns {
			out[col] = row[col]
		}
		rows = append(rows, out)
	}
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
