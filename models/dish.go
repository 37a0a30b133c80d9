package models

// Dish is a menu entry. Price is in the smallest currency unit.
type Dish struct {
	ID          int    `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Price       int64  `json:"price" bson:"price"`
	Category    string `json:"category" bson:"category"`
	Description string `json:"description" bson:"description"`
	Ingredients string `json:"ingredients" bson:"ingredients"`
	Image       string `json:"image,omitempty" bson:"image,omitempty"`
	Available   bool   `json:"disponible" bson:"disponible"`
}
