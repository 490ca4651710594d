package domain

// User Model
type User struct {
	ID       uint     `gorm:"primaryKey" json:"id"`                                         // Primary key
	Username string   `gorm:"size:160;unique;not null" json:"username"`                     // Unique username
	Password string   `gorm:"not null" json:"-"`                                            // Hashed password
	Profile  *Profile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile"` // One-to-one relationship with Profile
	Orders   []Order  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`       // Orders owned by the user
}

// Profile Model
type Profile struct {
	ID     uint `gorm:"primaryKey" json:"id"`                            // Primary key
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`             // Foreign key to User
	Role   Role `gorm:"size:20;not null;default:authorized" json:"role"` // Access level
}
