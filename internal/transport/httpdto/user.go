package httpdto

// UserSummaryDTO never includes password material.
type UserSummaryDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	LegacyPassword bool   `json:"legacy_password"`
}

// UsersResponse is returned by GET /admin/users
type UsersResponse struct {
	Users []UserSummaryDTO `json:"users"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
