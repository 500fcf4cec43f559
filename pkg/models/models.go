package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Category{},
		&Product{},
		&Cart{},
		&ProductInCart{},
		&Order{},
		&ProductInOrder{},
		&Review{},
	}
}
