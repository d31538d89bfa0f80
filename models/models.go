package models

// All 回傳需要AutoMigrate的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&LoginToken{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Favorite{},
		&Review{},
	}
}
