package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// EmailTemplate defines the structure for email templates stored in the DB.
// Subject and Body are text/template sources.
type EmailTemplate struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	TemplateID string             `bson:"template_id" json:"template_id"` // e.g., "new_contact_message"
	Locale     string             `bson:"locale" json:"locale"`           // e.g., "en-US"
	Subject    string             `bson:"subject" json:"subject"`
	Body       string             `bson:"body" json:"body"` // Plain text
}
