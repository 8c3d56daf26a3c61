package api

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse представляет ответ на POST /auth/login
type LoginResponse struct {
	User    *UserProfile `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`   // bearer token для всех остальных запросов
	Message string       `json:"message,omitempty"` // причина отказа
	Status  bool         `json:"status"`
}

// MeResponse представляет ответ на GET /auth/me
type MeResponse struct {
	User   *UserProfile `json:"user,omitempty"`
	Status bool         `json:"status"`
}

// StatusResponse представляет ответ без полезной нагрузки (logout)
type StatusResponse struct {
	Message string `json:"message,omitempty"`
	Status  bool   `json:"status"`
}

// UserProfile представляет профиль пользователя, который возвращает backend
type UserProfile struct {
	Username string           `json:"username"`
	Name     string           `json:"nama"`
	Detil    []RoleAssignment `json:"detil"`
}

// RoleAssignment представляет одну пару (роль, приложение) пользователя
type RoleAssignment struct {
	RoleName string `json:"role_name"` // например "SA"
	AppsID   string `json:"apps_id"`   // например "APP004"
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
	Status  bool   `json:"status"`
}
