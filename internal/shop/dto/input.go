package dto

type CreateShopInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	ManagerID   string `json:"manager_id"` // Optional existing user
}

// UpdateShopInput carries a partial update; nil fields are left untouched.
type UpdateShopInput struct {
	ID          string  `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	ManagerID   *string `json:"manager_id"`
}

type ManagerInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SeedShopInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Address     string       `json:"address"`
	Phone       string       `json:"phone"`
	Manager     ManagerInput `json:"manager"`
}
