// Package menu строит навигацию консоли по ролям пользователя.
package menu

import (
	"github.com/iudanet/esps-console/pkg/api"
)

const (
	// RoleSuperAdmin дает доступ к администрированию
	RoleSuperAdmin = "SA"
	// AppAdmin - приложение администрирования
	AppAdmin = "APP004"
)

// Route keys.
const (
	KeyDashboard     = "dashboard"
	KeyIncoming      = "incoming"
	KeyOutgoing      = "outgoing"
	KeyAdmin         = "admin"
	KeyAdminMitra    = "admin/admin-mitra"
	KeyAdminUsers    = "admin/admin-users"
	KeyAdminSettings = "admin/admin-settings"
)

// Capabilities are the navigation rights derived from role assignments.
type Capabilities struct {
	HasAdminAccess bool
}

// Item is a navigation entry; group items carry Children.
type Item struct {
	Key      string
	Label    string
	Children []Item
}

// CapabilitiesFrom вычисляет права по списку назначений.
// Административный доступ есть, если хотя бы одно назначение имеет роль SA
// или приложение APP004.
func CapabilitiesFrom(roles []api.RoleAssignment) Capabilities {
	for _, r := range roles {
		if r.RoleName == RoleSuperAdmin || r.AppsID == AppAdmin {
			return Capabilities{HasAdminAccess: true}
		}
	}
	return Capabilities{}
}

// Resolve returns the menu for the given capabilities. Each call builds a new slice.
func Resolve(caps Capabilities) []Item {
	items := []Item{
		{Key: KeyDashboard, Label: "Dashboard"},
		{Key: KeyIncoming, Label: "Incoming"},
		{Key: KeyOutgoing, Label: "Outgoing"},
	}
	if caps.HasAdminAccess {
		items = append(items, Item{
			Key:   KeyAdmin,
			Label: "Admin",
			Children: []Item{
				{Key: KeyAdminMitra, Label: "Mitra"},
				{Key: KeyAdminUsers, Label: "Users"},
				{Key: KeyAdminSettings, Label: "Settings"},
			},
		})
	}
	return items
}

// Find ищет пункт меню по ключу, включая вложенные
func Find(items []Item, key string) (Item, bool) {
	for _, it := range items {
		if it.Key == key {
			return it, true
		}
		if found, ok := Find(it.Children, key); ok {
			return found, true
		}
	}
	return Item{}, false
}

// Keys возвращает ключи всех пунктов в порядке обхода
func Keys(items []Item) []string {
	var keys []string
	for _, it := range items {
		keys = append(keys, it.Key)
		keys = append(keys, Keys(it.Children)...)
	}
	return keys
}
