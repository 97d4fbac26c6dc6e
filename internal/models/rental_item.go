package models

import "time"

type RentalItem struct {
	ID          int64     `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Category    string    `yaml:"category" json:"category"`
	Description string    `yaml:"description" json:"description"`
	PricePerDay int64     `yaml:"price_per_day" json:"pricePerDay"`
	Deposit     int64     `yaml:"deposit" json:"deposit"`
	Available   bool      `yaml:"available" json:"available"`
	CreatedAt   time.Time `yaml:"-" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"-" json:"updatedAt"`
}
