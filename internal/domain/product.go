package domain

import "time"

// Product — товар каталога, которым владеет inventory-сервис.
// Инвариант: Quantity >= 0 при любой мутации.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrProductQtyInvalid)
	}

	return errs
}

// ProductPatch описывает частичное обновление товара. Нулевые значения
// трактуются как «поле не передано»: пустые строки, цена <= 0 и
// отрицательное количество сохраняют прежнее значение.
type ProductPatch struct {
	Name        string
	Description string
	Price       float64
	Quantity    int

	// QuantitySet отличает «количество не передано» от нуля.
	QuantitySet bool
}

// Apply накладывает patch на товар по правилам частичного обновления.
func (patch ProductPatch) Apply(p *Product) {
	if patch.Name != "" {
		p.Name = patch.Name
	}
	if patch.Description != "" {
		p.Description = patch.Description
	}
	if patch.Price > 0 {
		p.Price = patch.Price
	}
	if patch.QuantitySet && patch.Quantity >= 0 {
		p.Quantity = patch.Quantity
	}
}
