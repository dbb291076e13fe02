package cmd

import (
	"context"
	"fmt"
	"os"

	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/adapters/out/postgres/directoryrepo"
	"tradeflow/internal/adapters/out/postgres/inventoryrepo"
	"tradeflow/internal/core/domain/model/supplier"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedDocument is reference data loaded at start-up: customer credit lines,
// vendor offers and opening stock.
type SeedDocument struct {
	Credit []struct {
		Customer string `yaml:"customer"`
		Amount   string `yaml:"amount"`
		Currency string `yaml:"currency"`
	} `yaml:"credit"`
	Vendors []struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		Product      string `yaml:"product"`
		UnitCost     string `yaml:"unit_cost"`
		Currency     string `yaml:"currency"`
		LeadTimeDays int    `yaml:"lead_time_days"`
		MaxQuantity  int    `yaml:"max_quantity"`
		Approved     bool   `yaml:"approved"`
	} `yaml:"vendors"`
	Stock []struct {
		Product string `yaml:"product"`
		OnHand  int    `yaml:"on_hand"`
	} `yaml:"stock"`
}

// Seed applies the YAML reference data at path to the configured storage.
func (c *CompositionRoot) Seed(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}
	var doc SeedDocument
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for _, line := range doc.Credit {
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			return fmt.Errorf("credit for %s: %w", line.Customer, err)
		}
		switch credit := c.credit.(type) {
		case *memory.CreditLedger:
			credit.SetAvailable(line.Customer, amount, line.Currency)
		case *directoryrepo.GormCreditLedger:
			if err = credit.SetAvailable(ctx, line.Customer, amount, line.Currency); err != nil {
				return err
			}
		}
	}

	for _, offer := range doc.Vendors {
		cost, err := decimal.NewFromString(offer.UnitCost)
		if err != nil {
			return fmt.Errorf("unit cost of %s: %w", offer.ID, err)
		}
		v := supplier.Vendor{
			ID:           offer.ID,
			Name:         offer.Name,
			ProductID:    offer.Product,
			UnitCost:     cost,
			Currency:     offer.Currency,
			LeadTimeDays: offer.LeadTimeDays,
			MaxQuantity:  offer.MaxQuantity,
			Approved:     offer.Approved,
		}
		if err = v.Validate(); err != nil {
			return err
		}
		switch vendors := c.vendors.(type) {
		case *memory.VendorDirectory:
			vendors.Add(v)
		case *directoryrepo.GormVendorDirectory:
			if err = vendors.Save(ctx, v); err != nil {
				return err
			}
		}
	}

	for _, level := range doc.Stock {
		switch inventory := c.inventory.(type) {
		case *memory.Inventory:
			inventory.SetOnHand(level.Product, level.OnHand)
		case *inventoryrepo.GormInventory:
			if err = inventory.SetOnHand(ctx, level.Product, level.OnHand); err != nil {
				return err
			}
		}
	}

	c.logger.InfoContext(ctx, "reference data seeded",
		"file", path,
		"credit_lines", len(doc.Credit),
		"vendors", len(doc.Vendors),
		"stock_levels", len(doc.Stock),
	)
	return nil
}
