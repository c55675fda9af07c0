package models

// DateJoinedLayout is the text format stored in users.date_joined.
const DateJoinedLayout = "2006-01-02 15:04:05.000000"

// Credential is one registered account. Rows are written once at sign-up and
// never updated.
type Credential struct {
	Email      string `gorm:"column:email;primaryKey;type:text" json:"email"`
	Username   string `gorm:"column:username;type:text;not null;uniqueIndex" json:"username"`
	Password   string `gorm:"column:password;type:text;not null" json:"-"`
	DateJoined string `gorm:"column:date_joined;type:text;not null" json:"date_joined"`
}

func (Credential) TableName() string {
	return "users"
}
