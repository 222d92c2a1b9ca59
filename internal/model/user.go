package model

type User struct {
	AvatarURL *string `json:"avatar_url,omitempty"`
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
}
