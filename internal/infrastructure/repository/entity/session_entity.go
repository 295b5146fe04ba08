package entity

import (
	"time"

	"shopify-embed-auth/internal/domain"
)

// MongoSessionDoc represents a session in MongoDB. The session id doubles
// as the document id, so offline upserts replace the shop's previous
// record in place. UserID is denormalized out of the associated user to
// back the user index.
type MongoSessionDoc struct {
	ID             string                  `bson:"_id"`
	Shop           string                  `bson:"shop"`
	State          string                  `bson:"state,omitempty"`
	AccessToken    string                  `bson:"accessToken,omitempty"`
	Scopes         []string                `bson:"scopes,omitempty"`
	IsOnline       bool                    `bson:"isOnline"`
	UserID         int64                   `bson:"userId,omitempty"`
	AssociatedUser *MongoAssociatedUserDoc `bson:"associatedUser,omitempty"`
	ReturnTo       string                  `bson:"returnTo,omitempty"`
	ExpiresAt      *time.Time              `bson:"expiresAt,omitempty"`
	CreatedAt      time.Time               `bson:"createdAt"`
	UpdatedAt      time.Time               `bson:"updatedAt"`
}

// MongoAssociatedUserDoc represents the admin user of an online session
type MongoAssociatedUserDoc struct {
	ID            int64  `bson:"id"`
	FirstName     string `bson:"firstName,omitempty"`
	LastName      string `bson:"lastName,omitempty"`
	Email         string `bson:"email,omitempty"`
	EmailVerified bool   `bson:"emailVerified,omitempty"`
	AccountOwner  bool   `bson:"accountOwner,omitempty"`
	Locale        string `bson:"locale,omitempty"`
	Collaborator  bool   `bson:"collaborator,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	session := &domain.Session{
		ID:          d.ID,
		Shop:        d.Shop,
		State:       d.State,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		IsOnline:    d.IsOnline,
		ReturnTo:    d.ReturnTo,
		ExpiresAt:   d.ExpiresAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.AssociatedUser != nil {
		session.AssociatedUser = &domain.AssociatedUser{
			ID:            d.AssociatedUser.ID,
			FirstName:     d.AssociatedUser.FirstName,
			LastName:      d.AssociatedUser.LastName,
			Email:         d.AssociatedUser.Email,
			EmailVerified: d.AssociatedUser.EmailVerified,
			AccountOwner:  d.AssociatedUser.AccountOwner,
			Locale:        d.AssociatedUser.Locale,
			Collaborator:  d.AssociatedUser.Collaborator,
		}
	}
	return session
}

// MongoSessionDocFromDomain converts a domain entity to a MongoDB document
func MongoSessionDocFromDomain(session *domain.Session) *MongoSessionDoc {
	doc := &MongoSessionDoc{
		ID:          session.ID,
		Shop:        session.Shop,
		State:       session.State,
		AccessToken: session.AccessToken,
		Scopes:      session.Scopes,
		IsOnline:    session.IsOnline,
		UserID:      session.UserID(),
		ReturnTo:    session.ReturnTo,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
	if user := session.AssociatedUser; user != nil {
		doc.AssociatedUser = &MongoAssociatedUserDoc{
			ID:            user.ID,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Email:         user.Email,
			EmailVerified: user.EmailVerified,
			AccountOwner:  user.AccountOwner,
			Locale:        user.Locale,
			Collaborator:  user.Collaborator,
		}
	}
	return doc
}
