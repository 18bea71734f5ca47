package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultTimeout = 30 * time.Second

// demoCatalog — стартовый ассортимент магазина.
var demoCatalog = []domain.Product{
	{Name: "Rice 5kg", Description: "Premium quality rice, 5kg bag", Price: decimal.RequireFromString("450.00"), Stock: 50, Category: "Food"},
	{Name: "Wheat Flour 2kg", Description: "Fresh wheat flour, 2kg pack", Price: decimal.RequireFromString("120.00"), Stock: 30, Category: "Food"},
	{Name: "Cooking Oil 1L", Description: "Refined cooking oil, 1 liter", Price: decimal.RequireFromString("180.00"), Stock: 40, Category: "Food"},
	{Name: "Soap Bar", Description: "Gentle soap bar for daily use", Price: decimal.RequireFromString("25.00"), Stock: 100, Category: "Personal Care"},
	{Name: "Toothpaste", Description: "Fluoride toothpaste, 100g", Price: decimal.RequireFromString("55.00"), Stock: 60, Category: "Personal Care"},
	{Name: "Detergent Powder 1kg", Description: "Laundry detergent, 1kg pack", Price: decimal.RequireFromString("150.00"), Stock: 35, Category: "Household"},
	{Name: "Notebook A4", Description: "Spiral bound notebook, A4 size", Price: decimal.RequireFromString("45.00"), Stock: 80, Category: "Stationery"},
	{Name: "Pen Set", Description: "Set of 3 blue ink pens", Price: decimal.RequireFromString("30.00"), Stock: 120, Category: "Stationery"},
}

func main() {
	force := flag.Bool("force", false, "insert the catalog even if products already exist")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("component", "seed")

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("некорректная конфигурация")
	}

	if err := run(cfg, *force, logger); err != nil {
		logger.WithError(err).Fatal("seeding failed")
	}
}

func run(cfg app.Config, force bool, logger *log.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	inserted, err := seed(ctx, store.Repositories().Products, demoCatalog, force, logger)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"storage":  cfg.StorageDriver,
		"inserted": inserted,
	}).Info("seeding finished")
	return nil
}

// seed добавляет каталог, если товаров ещё нет. Возвращает число вставленных товаров.
func seed(ctx context.Context, products domain.ProductRepository, catalog []domain.Product, force bool, logger *log.Entry) (int, error) {
	existing, err := products.List(ctx, domain.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 && !force {
		logger.WithField("existing", len(existing)).Warn("products already exist, clear the catalog or use -force to re-seed")
		return 0, nil
	}

	for i, product := range catalog {
		if errs := product.Validate(); len(errs) > 0 {
			return i, fmt.Errorf("product %q: %w", product.Name, domain.NewValidationError(errs))
		}
		created, err := products.Create(ctx, product)
		if err != nil {
			return i, fmt.Errorf("create product %q: %w", product.Name, err)
		}
		logger.WithFields(log.Fields{"id": created.ID, "name": created.Name}).Info("product added")
	}
	return len(catalog), nil
}
