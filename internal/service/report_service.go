package service

import (
	"bytes"
	"context"
	"fmt"

	"go-resto-inventory/internal/model"

	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventaire"

var inventoryHeadings = []string{
	"Produit", "Période", "Début", "Entrées", "Sorties", "Ventes", "Pertes",
	"Stock", "Coût d'achat", "Prix de vente", "Chiffre d'affaires", "Coût total", "Bénéfice", "Marge %",
}

type ReportService interface {
	// ExportInventory renders the inventory buckets matching filter as an XLSX workbook.
	ExportInventory(ctx context.Context, actor model.Actor, filter model.AggregateFilter) (*bytes.Buffer, error)
}

type reportService struct {
	aggregates AggregationService
}

func NewReportService(aggregates AggregationService) ReportService {
	return &reportService{aggregates: aggregates}
}

func (s *reportService) ExportInventory(ctx context.Context, actor model.Actor, filter model.AggregateFilter) (*bytes.Buffer, error) {
	rows, err := s.aggregates.ListInventory(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return nil, err
	}

	for i, h := range inventoryHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(inventorySheet, cell, h); err != nil {
			return nil, err
		}
	}
	for i, r := range rows {
		name := r.ProductID.String()
		if r.Product != nil {
			name = r.Product.Name
		}
		values := []interface{}{
			name, string(r.Period), r.PeriodDate.Format("2006-01-02"),
			r.Entries, r.Exits, r.Sales, r.Losses, r.CurrentStock,
			r.PurchaseCost, r.SellingPrice, r.TotalRevenue, r.TotalCost, r.Profit, r.Margin,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(inventorySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}
