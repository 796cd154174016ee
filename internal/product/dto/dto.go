package dto

type ProductFilters struct {
	ShopID      string
	Category    string
	SearchQuery string // Matches name or category
	SortBy      string // name, price, stock, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}
