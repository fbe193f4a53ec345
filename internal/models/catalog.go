package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	OldPrice    decimal.Decimal `json:"old_price"`
	ImageURL    string          `json:"image_url,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	InStock     bool            `json:"in_stock"`
}

type ProductBundle struct {
	Product Product   `json:"product"`
	Related []Product `json:"related"`
}

type Category struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ImageURL string `json:"image_url,omitempty"`
}

type Banner struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	Target   string `json:"target,omitempty"`
}

type HomeSection struct {
	Title    string    `json:"title"`
	Products []Product `json:"products"`
}

type HomeFeed struct {
	Banners  []Banner      `json:"banners"`
	Sections []HomeSection `json:"sections"`
}

type SearchRequest struct {
	Query      string           `json:"query,omitempty"`
	CategoryID string           `json:"category_id,omitempty"`
	MinPrice   *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice   *decimal.Decimal `json:"max_price,omitempty"`
	Sort       string           `json:"sort,omitempty"`
	Page       int              `json:"page,omitempty"`
	PageSize   int              `json:"page_size,omitempty"`
}

type SearchResult struct {
	Items    []Product `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
