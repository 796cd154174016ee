package dto

import "github.com/fekuna/omnipos-boutique-service/internal/model"

type ShopFilters struct {
	SearchQuery string // Matches name or address
	Page        int
	PageSize    int
}

type SeededShop struct {
	Shop    *model.Shop `json:"shop"`
	Manager *model.User `json:"manager"`
}

type SeedResult struct {
	Created []SeededShop `json:"created"`
	Skipped []string     `json:"skipped"`
}
