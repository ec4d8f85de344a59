package models

// ContactMessage is a free-form message submitted through the contact form.
type ContactMessage struct {
	Base    `bson:",inline"`
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Message string `bson:"message" json:"message"`
}
