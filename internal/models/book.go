package models

// Book is a listing offered for sale.
type Book struct {
	Base   `bson:",inline"`
	Title  string  `bson:"title" json:"title"`
	Author string  `bson:"author" json:"author"`
	Price  float64 `bson:"price" json:"price"`
	Phone  string  `bson:"phone" json:"phone"` // Seller contact
}
