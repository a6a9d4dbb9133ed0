package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/connectors"
	gmailconnector "orderintake/internal/connectors/gmail"
	imapconnector "orderintake/internal/connectors/imap"
	"orderintake/internal/pipeline"
	"orderintake/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		csvPath := fs.String("csv", cfg.CatalogCSVPath, "catalog csv path")
		_ = fs.Parse(os.Args[2:])
		products, err := catalog.LoadCSV(*csvPath)
		must(err)
		must(db.UpsertProducts(products))
		fmt.Printf("catalog import complete: %d products\n", len(products))
	case "catalog:sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.FullSync(context.Background())
		must(err)
		fmt.Printf("full sync complete: %d products\n", count)
	case "catalog:sync-incremental":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		hours := fs.Int("hours", cfg.SupplierLookbackHrs, "lookback window in hours")
		_ = fs.Parse(os.Args[2:])
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.IncrementalSync(context.Background(), *hours)
		must(err)
		fmt.Printf("incremental sync complete hours=%d products=%d\n", *hours, count)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", cfg.MailFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d duplicates=%d\n", *provider, result.Fetched, result.Stored, result.Duplicates)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (empty = any)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.MailProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		store, err := loadCatalogStore(db, cfg)
		must(err)
		intake := pipeline.NewIntakeService(cfg, store)
		processor := pipeline.NewProcessingService(db, cfg, intake)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d order=%s lines=%d\n", res.EmailID, res.OrderID, res.Lines)
			return
		}
		processedEmails, processedLines, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d lines=%d\n", processedEmails, processedLines)
	case "parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "raw email file (.eml)")
		out := fs.String("out", "", "optional output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		raw, err := os.ReadFile(*file)
		must(err)
		store, err := loadCatalogStore(db, cfg)
		must(err)
		intake := pipeline.NewIntakeService(cfg, store)
		order, err := intake.ParseEmail(raw)
		must(err)
		encoded, err := json.MarshalIndent(order, "", "  ")
		must(err)
		fmt.Println(string(encoded))
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportOrderToXLSX(order, *out))
			fmt.Printf("exported order %s to %s\n", order.ID, *out)
		}
	case "export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		orderID := fs.String("order", "", "order id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*orderID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--order and --out are required"))
		}
		order, err := db.GetOrder(*orderID)
		must(err)
		if order == nil {
			must(fmt.Errorf("order not found: %s", *orderID))
		}
		must(pipeline.ExportOrderToXLSX(*order, *out))
		fmt.Printf("exported order %s (%d lines) to %s\n", order.ID, len(order.Items), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "", "xlsx|pdf|email_text|email_table")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *inType == "" || *output == "" {
			must(fmt.Errorf("--input --type --output are required"))
		}
		items, err := pipeline.ExtractItemsFromInput(*inType, *input)
		must(err)
		store, err := loadCatalogStore(db, cfg)
		must(err)
		intake := pipeline.NewIntakeService(cfg, store)
		order := intake.ValidateItems(items)
		must(pipeline.ExportOrderToXLSX(order, *output))
		fmt.Printf("run done order=%s lines=%d output=%s\n", order.ID, len(order.Items), *output)
	default:
		usage()
		os.Exit(1)
	}
}

// loadCatalogStore prefers products synced into the database and falls
// back to the catalog CSV for a fresh checkout.
func loadCatalogStore(db *storage.DB, cfg config.Config) (*catalog.Store, error) {
	products, err := db.ListProducts()
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		products, err = catalog.LoadCSV(cfg.CatalogCSVPath)
		if err != nil {
			return nil, fmt.Errorf("no products in database and catalog csv unavailable: %w", err)
		}
	}
	return catalog.NewStore(products)
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: intake <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:import [--csv=./data/catalog.csv]")
	fmt.Println("  catalog:sync")
	fmt.Println("  catalog:sync-incremental [--hours=24]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  parse --file=./order.eml [--out=./out/order.xlsx]")
	fmt.Println("  export --order=<id> --out=./out/order.xlsx")
	fmt.Println("  run --input=... --type=xlsx|pdf|email_text|email_table --output=...xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
