package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	CreatedAt    time.Time `                                     json:"created_at"`
}

// Token is the registry record kept for every minted token.
// Only Revoked changes after creation.
type Token struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"token_id"`
	JTI          string    `gorm:"size:36;uniqueIndex;not null"  json:"jti"`
	TokenType    string    `gorm:"size:10;not null"              json:"token_type"`
	UserIdentity string    `gorm:"size:50;index;not null"        json:"user_identity"`
	Revoked      bool      `gorm:"not null;default:false"        json:"revoked"`
	ExpiresAt    time.Time `gorm:"index;not null"                json:"expires"`
	CreatedAt    time.Time `                                     json:"-"`
}
