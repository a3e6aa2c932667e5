package models

// Role enum
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the messaging core's projection of an account. Accounts are owned
// by the auth/profile subsystem; only the fields the messaging core consults
// live here: an identity, how to present it, and notification preferences.
type User struct {
	BaseModel
	DisplayName string `gorm:"size:100" json:"displayName"`
	AvatarURL   string `gorm:"size:512" json:"avatarUrl,omitempty"`
	Role        Role   `gorm:"size:20;default:'user'" json:"role"`

	// Notification preference projection, consulted by the dispatcher only.
	MessageNotificationsEnabled bool `gorm:"default:true" json:"messageNotificationsEnabled"`
	PushEnabled                 bool `gorm:"default:false" json:"pushEnabled"`

	// Relations (not always preloaded)
	Participations    []ConversationParticipant `gorm:"foreignKey:UserID" json:"-"`
	SentMessages      []Message                 `gorm:"foreignKey:SenderID" json:"-"`
	Notifications     []Notification            `gorm:"foreignKey:UserID" json:"-"`
	PushSubscriptions []PushSubscription        `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to embed in API responses.
type UserSanitized struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Sanitize creates a UserSanitized struct from a User model.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
