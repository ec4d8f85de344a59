package models

// Purchase records a buyer's claim on a listing. The book fields are a
// snapshot taken at purchase time; BookID is not checked against the books
// collection.
type Purchase struct {
	Base       `bson:",inline"`
	BookID     string  `bson:"bookId" json:"bookId"`
	BookTitle  string  `bson:"bookTitle" json:"bookTitle"`
	BookAuthor string  `bson:"bookAuthor" json:"bookAuthor"`
	BookPrice  float64 `bson:"bookPrice" json:"bookPrice"`
	BuyerName  string  `bson:"buyerName" json:"buyerName"`
	BuyerEmail string  `bson:"buyerEmail" json:"buyerEmail"`
	BuyerPhone string  `bson:"buyerPhone" json:"buyerPhone"`
}
