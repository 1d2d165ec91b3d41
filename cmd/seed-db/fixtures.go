package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// table describes a fixture file and the columns it may set.
type table struct {
	name    string
	columns []string
}

// tables are loaded in this order so foreign keys resolve.
var tables = []table{
	{name: "products", columns: []string{"id", "sku", "type", "name", "price_vat", "cost_price", "vat_rate", "stock", "availability", "state"}},
	{name: "discounts", columns: []string{
		"id", "type_tag", "type_name", "name", "label_name", "start_date", "end_date", "discount_type", "value",
		"type_card", "value_card", "type_coupon", "value_coupon", "start_date_coupon", "end_date_coupon",
		"offer_number", "purchase_number", "reference", "properties", "min_buy_count", "minimum_value",
		"description", "can_stack_direct",
	}},
	{name: "coupons", columns: []string{"id", "name", "code", "type", "kind", "value", "accumulative", "associated_products"}},
	{name: "users", columns: []string{"id", "email", "used_coupon"}},
	{name: "cards", columns: []string{"id", "user_id", "balance", "temp_balance"}},
}

// row is one fixture record: column name to value.
type row map[string]any

// readFixture reads a gzip-compressed file with one JSON object per line.
// Keys outside t.columns are rejected.
func readFixture(ctx context.Context, path string, t table) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip")
	}
	defer func() { _ = gz.Close() }()

	return decodeRows(ctx, gz, t)
}

func decodeRows(ctx context.Context, r io.Reader, t table) ([]row, error) {
	var rows []row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data := scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		rw, err := decodeRow(jx.DecodeBytes(data), t)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, rw)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return rows, nil
}

func decodeRow(d *jx.Decoder, t table) (row, error) {
	rw := row{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if !slices.Contains(t.columns, key) {
			return errors.Errorf("unknown column %q", key)
		}
		switch d.Next() {
		case jx.Null:
			rw[key] = nil
			return d.Null()
		case jx.String:
			s, err := d.Str()
			rw[key] = s
			return err
		case jx.Bool:
			b, err := d.Bool()
			rw[key] = b
			return err
		case jx.Number:
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			n, err := decimal.NewFromString(raw.String())
			if err != nil {
				return errors.Wrapf(err, "column %q", key)
			}
			if n.IsInteger() {
				rw[key] = n.IntPart()
			} else {
				rw[key] = n
			}
			return nil
		default:
			// Nested values are JSONB columns; pgx sends []byte as raw JSON.
			raw, err := d.Raw()
			rw[key] = slices.Clone([]byte(raw))
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	if _, ok := rw["id"]; !ok {
		return nil, errors.New("missing id")
	}
	return rw, nil
}

// upsertSQL builds an idempotent insert for the columns present in rw.
func upsertSQL(tableName string, rw row, order []string) (string, []any) {
	var (
		cols   []string
		params []string
		sets   []string
		args   []any
	)
	for _, c := range order {
		v, ok := rw[c]
		if !ok {
			continue
		}
		args = append(args, v)
		cols = append(cols, c)
		params = append(params, "$"+strconv.Itoa(len(args)))
		if c != "id" {
			sets = append(sets, c+" = EXCLUDED."+c)
		}
	}

	var b strings.Builder
	b.WriteString("INSERT INTO " + tableName + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ") ON CONFLICT (id) DO ")
	if len(sets) == 0 {
		b.WriteString("NOTHING")
	} else {
		b.WriteString("UPDATE SET " + strings.Join(sets, ", "))
	}
	return b.String(), args
}

// queueUpserts adds one upsert per row and a sequence reset to batch.
func queueUpserts(batch *pgx.Batch, t table, rows []row) {
	for _, rw := range rows {
		sql, args := upsertSQL(t.name, rw, t.columns)
		batch.Queue(sql, args...)
	}
	batch.Queue("SELECT setval(pg_get_serial_sequence('" + t.name + "', 'id'), COALESCE(MAX(id), 1)) FROM " + t.name)
}
