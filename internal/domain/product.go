package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	productNameMin        = 2
	productNameMax        = 255
	productDescriptionMax = 2000
	productCategoryMax    = 100

	// MaxCount ограничивает остаток и количество: колонки INTEGER в postgres.
	MaxCount = math.MaxInt32
	// amountScale — сколько знаков после запятой хранят денежные колонки.
	amountScale = 2
)

// validAmountScale: сумма должна храниться без округления на любом бэкенде.
func validAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(amountScale))
}

// Product описывает товар каталога.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	// ImagePath — путь загруженного файла (/uploads/...) или внешний URL; хранится как есть.
	ImagePath string    `json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate проверяет инварианты товара перед сохранением.
func (p *Product) Validate() []error {
	var errs []error

	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		errs = append(errs, ErrProductNameRequired)
	case utf8.RuneCountInString(name) < productNameMin || utf8.RuneCountInString(name) > productNameMax:
		errs = append(errs, ErrProductNameLength)
	}
	if utf8.RuneCountInString(p.Description) > productDescriptionMax {
		errs = append(errs, ErrProductDescriptionLong)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrProductPriceNegative)
	} else if !validAmountScale(p.Price) {
		errs = append(errs, ErrAmountScale)
	}
	switch {
	case p.Stock < 0:
		errs = append(errs, ErrProductStockNegative)
	case p.Stock > MaxCount:
		errs = append(errs, ErrProductStockTooLarge)
	}
	if utf8.RuneCountInString(p.Category) > productCategoryMax {
		errs = append(errs, ErrProductCategoryLong)
	}

	return errs
}

// ProductUpdate задаёт частичное обновление: nil-поле оставляет сохранённое значение без изменений.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	ImagePath   *string
}

// IsEmpty сообщает, что обновлять нечего.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.Stock == nil && u.Category == nil && u.ImagePath == nil
}

// Apply возвращает копию товара с применёнными изменениями.
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.ImagePath != nil {
		p.ImagePath = *u.ImagePath
	}
	return p
}

// Validate проверяет только переданные поля.
func (u ProductUpdate) Validate() []error {
	probe := Product{Name: "ok", Price: decimal.Zero}
	probe = u.Apply(probe)
	return probe.Validate()
}

// ProductFilter описывает фильтры выборки каталога.
type ProductFilter struct {
	// Category — точное совпадение; пустая строка отключает фильтр.
	Category string
	// Search — подстрока без учёта регистра по имени или описанию.
	Search string
}

// Matches применяет фильтр к товару (используется in-memory хранилищем).
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}
