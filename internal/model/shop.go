package model

type Shop struct {
	BaseModel
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Address     string  `db:"address" json:"address"`
	Phone       string  `db:"phone" json:"phone"`
	ManagerID   *string `db:"manager_id" json:"manager_id"` // Responsible user
}

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

type User struct {
	BaseModel
	Username     string  `db:"username" json:"username"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Role         string  `db:"role" json:"role"`
	ShopID       *string `db:"shop_id" json:"shop_id"`
}
