package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"orderintake/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  sku TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  aliases TEXT NOT NULL DEFAULT '[]',
  price REAL NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  minOrderQty INTEGER NOT NULL DEFAULT 1,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  emailId INTEGER,
  deliveryDate TEXT,
  shippingAddress TEXT,
  customerName TEXT,
  notes TEXT,
  urgency TEXT NOT NULL,
  status TEXT NOT NULL,
  totalPrice REAL NOT NULL,
  totalItems INTEGER NOT NULL,
  hasIssues INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(emailId);

CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderId TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  requestedName TEXT NOT NULL,
  requestedQty INTEGER NOT NULL,
  status TEXT NOT NULL,
  sku TEXT,
  matchedName TEXT,
  matchScore REAL NOT NULL DEFAULT 0,
  stock INTEGER,
  minOrderQty INTEGER,
  price REAL,
  lineTotal REAL,
  issue TEXT,
  alternativesJson TEXT NOT NULL DEFAULT '[]',
  FOREIGN KEY(orderId) REFERENCES orders(id)
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(orderId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (sku, name, description, aliases, price, stock, minOrderQty, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(sku) DO UPDATE SET
  name=excluded.name,
  description=excluded.description,
  aliases=excluded.aliases,
  price=excluded.price,
  stock=excluded.stock,
  minOrderQty=excluded.minOrderQty,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		aliasJSON, _ := json.Marshal(p.Aliases)
		if _, err := stmt.Exec(p.SKU, p.Name, p.Description, string(aliasJSON), p.Price, p.Stock, p.MinOrderQty); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.Product, error) {
	rows, err := d.conn.Query(`
SELECT sku, name, COALESCE(description, ''), aliases, price, stock, minOrderQty
FROM products ORDER BY sku ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Product
	for rows.Next() {
		var p internal.Product
		var aliasJSON string
		if err := rows.Scan(&p.SKU, &p.Name, &p.Description, &aliasJSON, &p.Price, &p.Stock, &p.MinOrderQty); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(aliasJSON), &p.Aliases)
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

// ListEmailsByStatus returns up to limit emails in a status, oldest
// first. An empty provider matches every provider; a non-empty one
// filters in SQL so the limit counts only that provider's emails.
func (d *DB) ListEmailsByStatus(status, provider string, limit int) ([]internal.EmailRow, error) {
	query := `
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ?`
	args := []any{status}
	if provider != "" {
		query += ` AND provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY receivedAt ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// ClearEmailOrders removes orders produced by an earlier processing run of
// the same email, so reprocessing never double-books lines.
func (d *DB) ClearEmailOrders(emailID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT id FROM orders WHERE emailId = ?`, emailID)
	if err != nil {
		return err
	}
	var orderIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		orderIDs = append(orderIDs, id)
	}
	_ = rows.Close()

	for _, id := range orderIDs {
		if _, err := tx.Exec(`DELETE FROM order_items WHERE orderId = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM orders WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertOrder(order internal.Order, emailID *int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var deliveryDate *string
	if order.DeliveryDate != nil {
		s := order.DeliveryDate.UTC().Format(time.RFC3339)
		deliveryDate = &s
	}

	if _, err := tx.Exec(`
INSERT INTO orders (id, emailId, deliveryDate, shippingAddress, customerName, notes, urgency, status, totalPrice, totalItems, hasIssues)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, order.ID, emailID, deliveryDate, order.ShippingAddress, order.CustomerName, order.Notes,
		string(order.Urgency), string(order.Status), order.TotalPrice, order.TotalItems, boolToInt(order.HasIssues)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO order_items (orderId, lineNo, requestedName, requestedQty, status, sku, matchedName, matchScore, stock, minOrderQty, price, lineTotal, issue, alternativesJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range order.Items {
		altJSON, _ := json.Marshal(item.Alternatives)
		if _, err := stmt.Exec(order.ID, i+1, item.RequestedName, item.RequestedQty, string(item.Status),
			item.SKU, item.MatchedName, item.MatchScore, item.Stock, item.MinOrderQty, item.Price, item.LineTotal,
			item.Issue, string(altJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetOrder(id string) (*internal.Order, error) {
	var order internal.Order
	var deliveryDate *string
	var urgency, status string
	var hasIssues int
	err := d.conn.QueryRow(`
SELECT id, deliveryDate, shippingAddress, customerName, notes, urgency, status, totalPrice, totalItems, hasIssues
FROM orders WHERE id = ?
`, id).Scan(&order.ID, &deliveryDate, &order.ShippingAddress, &order.CustomerName, &order.Notes,
		&urgency, &status, &order.TotalPrice, &order.TotalItems, &hasIssues)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	order.Urgency = internal.Urgency(urgency)
	order.Status = internal.ItemStatus(status)
	order.HasIssues = hasIssues != 0
	if deliveryDate != nil && strings.TrimSpace(*deliveryDate) != "" {
		if parsed, err := time.Parse(time.RFC3339, *deliveryDate); err == nil {
			order.DeliveryDate = &parsed
		}
	}

	rows, err := d.conn.Query(`
SELECT requestedName, requestedQty, status, sku, matchedName, matchScore, stock, minOrderQty, price, lineTotal, issue, alternativesJson
FROM order_items WHERE orderId = ?
ORDER BY
  CASE status WHEN 'VALID' THEN 1 WHEN 'BELOW_MIN_ORDER' THEN 2 WHEN 'INSUFFICIENT_STOCK' THEN 3 WHEN 'AMBIGUOUS' THEN 4 ELSE 5 END,
  lineNo ASC
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item internal.ValidationOutcome
		var itemStatus, altJSON string
		if err := rows.Scan(&item.RequestedName, &item.RequestedQty, &itemStatus, &item.SKU, &item.MatchedName,
			&item.MatchScore, &item.Stock, &item.MinOrderQty, &item.Price, &item.LineTotal, &item.Issue, &altJSON); err != nil {
			return nil, err
		}
		item.Status = internal.ItemStatus(itemStatus)
		_ = json.Unmarshal([]byte(altJSON), &item.Alternatives)
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &order, nil
}

func (d *DB) ListOrderIDsByEmail(emailID int) ([]string, error) {
	rows, err := d.conn.Query(`SELECT id FROM orders WHERE emailId = ? ORDER BY createdAt ASC`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
