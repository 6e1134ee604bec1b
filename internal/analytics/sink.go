// internal/analytics/sink.go
package analytics

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Sink receives projected rows. Implementations return an error and leave
// suppression to the Mirror.
type Sink interface {
	Name() string
	Write(ctx context.Context, row *Row) error
}

// SQLSink inserts rows into the analytical warehouse table.
type SQLSink struct {
	db    *sql.DB
	table string
	stmt  string
}

func NewSQLSink(db *sql.DB, table string) *SQLSink {
	return &SQLSink{db: db, table: table, stmt: buildInsert(table)}
}

func buildInsert(table string) string {
	cols := Columns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func (s *SQLSink) Name() string { return "warehouse" }

func (s *SQLSink) Write(ctx context.Context, row *Row) error {
	if _, err := s.db.ExecContext(ctx, s.stmt, row.Values()...); err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}
	return nil
}

// ElasticsearchSink indexes rows as documents keyed by application id.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Name() string { return "search-index" }

func (s *ElasticsearchSink) Write(ctx context.Context, row *Row) error {
	body, err := json.Marshal(row.Document())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: row.ApplicationID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("index %s: %s: %s", s.index, res.Status(), strings.TrimSpace(string(msg)))
	}
	return nil
}
