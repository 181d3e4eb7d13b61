// Command catalog-import loads a wide-form CSV of products into the catalog
// store configured by the environment.
//
//	catalog-import -file products.csv
//	catalog-import -file products.csv -dry-run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/georgemunganga/supply-backend/internal/app"
	"github.com/georgemunganga/supply-backend/internal/config"
	"github.com/georgemunganga/supply-backend/internal/logging"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/importer"
	"github.com/georgemunganga/supply-backend/internal/modules/stock"
)

func main() {
	file := flag.String("file", "", "path to the product CSV")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*file, *envFile, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path, envFile string, dryRun bool) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet, err := importer.ReadCSV(f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	categories := catalog.ParseCategories(strings.Join(cfg.Categories, ","))

	if dryRun {
		// Validation never touches the store.
		im := importer.NewImporter(catalog.NewMemoryRepository(), stock.NewLedger(nil, logger), categories, logger)
		products, err := im.ValidateSheet(sheet)
		if err != nil {
			return err
		}
		logger.Info("dry run passed", zap.String("file", path), zap.Int("products", len(products)))
		return nil
	}

	infra, err := app.NewInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	im := importer.NewImporter(infra.Products, stock.NewLedger(infra.Products, logger.Named("stock")), categories, logger.Named("importer"))
	res, err := im.ImportSheet(ctx, sheet)
	var ie *importer.ImportError
	if errors.As(err, &ie) && len(ie.Committed) > 0 {
		logger.Warn("import stopped after partial write; re-run with ids to resume",
			zap.Ints("committed_rows", ie.Committed))
	}
	if err != nil {
		return err
	}
	for _, r := range res.Created {
		fmt.Printf("created\tline %d\t%s\t%s\n", r.Row, r.ProductID, r.Name)
	}
	for _, r := range res.Skipped {
		fmt.Printf("skipped\tline %d\t%s\t%s\n", r.Row, r.ProductID, r.Name)
	}
	return nil
}
