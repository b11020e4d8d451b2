package state

import "github.com/marketlink/marketplace-web/internal/core/domain"

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	menuCommon = []MenuItem{
		{Label: "Dashboard", Path: "/dashboard"},
		{Label: "Catalog", Path: "/catalog"},
		{Label: "Connections", Path: "/connections"},
		{Label: "Notifications", Path: "/notifications"},
	}
	menuBuyer = []MenuItem{
		{Label: "Cart", Path: "/buyer/cart"},
		{Label: "Purchases", Path: "/buyer/orders"},
	}
	menuSupplier = []MenuItem{
		{Label: "My products", Path: "/supplier/products"},
		{Label: "Sales", Path: "/supplier/orders"},
	}
	menuServiceProvider = []MenuItem{
		{Label: "My services", Path: "/service-provider/services"},
	}
	menuAdmin = []MenuItem{
		{Label: "Users", Path: "/admin/users"},
		{Label: "Moderation", Path: "/admin/moderation"},
	}
)

// MenuFor builds the navigation menu for user. Anonymous visitors and users
// still in the registration wizard get no menu.
func MenuFor(user *domain.User) []MenuItem {
	if user == nil || !user.Progress().Complete() {
		return []MenuItem{}
	}

	items := append([]MenuItem{}, menuCommon...)
	if user.HasRole(domain.RoleBuyer) {
		items = append(items, menuBuyer...)
	}
	if user.HasRole(domain.RoleSupplier) {
		items = append(items, menuSupplier...)
	}
	if user.HasRole(domain.RoleServiceProvider) {
		items = append(items, menuServiceProvider...)
	}
	if user.HasRole(domain.RoleAdmin) {
		items = append(items, menuAdmin...)
	}
	return items
}
