package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// FormatCSV — единственный поддерживаемый формат выгрузки.
const FormatCSV = "csv"

// ErrUnsupportedFormat возвращается для любого формата, кроме csv.
var ErrUnsupportedFormat = errors.New("unsupported export format. Use csv")

const exportDateLayout = "2006-01-02"

var (
	orderColumns    = []string{"Order ID", "Customer Name", "Email", "Phone", "Order Date", "Status", "Total Amount", "Items Count"}
	customerColumns = []string{"Customer ID", "Name", "Email", "Phone", "Address", "Joined Date"}
)

// CheckFormat проверяет формат выгрузки; пустой формат означает csv.
func CheckFormat(format string) error {
	if format == "" || format == FormatCSV {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ExportOrdersCSV пишет заказы в w в формате RFC 4180.
func (s *Service) ExportOrdersCSV(ctx context.Context, w io.Writer) error {
	orders, err := s.Orders(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(orderColumns); err != nil {
		return fmt.Errorf("write orders header: %w", err)
	}
	for _, order := range orders {
		record := []string{
			order.ID,
			order.CustomerName,
			order.Email,
			order.Phone,
			formatDate(order.OrderDate),
			string(order.Status),
			order.TotalAmount.StringFixed(2),
			strconv.Itoa(order.ItemCount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write order %s: %w", order.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCustomersCSV пишет клиентов в w в формате RFC 4180.
func (s *Service) ExportCustomersCSV(ctx context.Context, w io.Writer) error {
	customers, err := s.Customers(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(customerColumns); err != nil {
		return fmt.Errorf("write customers header: %w", err)
	}
	for _, customer := range customers {
		record := []string{
			customer.ID,
			customer.Name,
			customer.Email,
			customer.Phone,
			customer.Address,
			formatDate(customer.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write customer %s: %w", customer.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(exportDateLayout)
}
