package models

import "time"

// User представляет пользователя backend-а
type User struct {
	CreatedAt    time.Time        `json:"created_at"`          // время создания
	LastLogin    *time.Time       `json:"last_login"`          // время последнего входа
	ID           string           `json:"id"`                  // UUID пользователя
	Username     string           `json:"username"`            // уникальный username
	Name         string           `json:"nama"`                // отображаемое имя
	PasswordHash string           `json:"-"`                   // bcrypt хеш пароля
	Roles        []RoleAssignment `json:"detil"`               // назначенные роли
}

// RoleAssignment представляет роль пользователя в конкретном приложении
type RoleAssignment struct {
	RoleName string `json:"role_name"`
	AppsID   string `json:"apps_id"`
}
