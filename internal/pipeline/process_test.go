package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/storage"
)

func TestProcessPendingProviderFilterHonorsLimit(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "intake.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	products := []internal.Product{
		{SKU: "W-100", Name: "Blue Widget", Price: 2.5, Stock: 100, MinOrderQty: 1},
		{SKU: "B-200", Name: "Steel Bracket", Price: 1.2, Stock: 50, MinOrderQty: 1},
	}
	if err := db.UpsertProducts(products); err != nil {
		t.Fatal(err)
	}

	body := []byte("Order request\n\n2 x Blue Widget\n3 x Steel Bracket\n")
	rawPath := filepath.Join(tmp, "pending.eml")
	if err := os.WriteFile(rawPath, body, 0o644); err != nil {
		t.Fatal(err)
	}

	// Two older gmail emails ahead of the imap one in receivedAt order.
	// A filter applied after the LIMIT would return neither imap email.
	seed := []struct {
		provider, messageID, receivedAt string
	}{
		{"gmail", "<g-1@example.com>", "2026-02-23T08:00:00Z"},
		{"gmail", "<g-2@example.com>", "2026-02-23T08:30:00Z"},
		{"imap", "<i-1@example.com>", "2026-02-23T09:00:00Z"},
	}
	for _, s := range seed {
		if _, err := db.UpsertEmail(s.provider, s.messageID, "Purchase order", "alice.johnson@example.com", s.receivedAt, "hash", rawPath, "fetched"); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	store, err := catalog.NewStore(products)
	if err != nil {
		t.Fatal(err)
	}
	proc := NewProcessingService(db, cfg, NewIntakeService(cfg, store))

	emails, lines, err := proc.ProcessPending(1, "imap")
	if err != nil {
		t.Fatal(err)
	}
	if emails != 1 {
		t.Fatalf("emails=%d", emails)
	}
	if lines != 2 {
		t.Fatalf("lines=%d", lines)
	}

	imapRow, err := db.GetEmailByProviderMessageID("imap", "<i-1@example.com>")
	if err != nil {
		t.Fatal(err)
	}
	if imapRow == nil || imapRow.Status != "processed" {
		t.Fatalf("imap row: %+v", imapRow)
	}
	for _, id := range []string{"<g-1@example.com>", "<g-2@example.com>"} {
		row, err := db.GetEmailByProviderMessageID("gmail", id)
		if err != nil {
			t.Fatal(err)
		}
		if row == nil || row.Status != "fetched" {
			t.Fatalf("gmail row %s: %+v", id, row)
		}
	}
}
