// Package access resolves the role of a caller and decides which actions
// that role may invoke.
package access

import (
	"slices"

	"catalog_system/internal/domain"
)

// Action names something a caller can attempt.
type Action string

const (
	ActionViewCatalog        Action = "view_catalog"
	ActionFilterCatalog      Action = "filter_catalog"
	ActionViewOwnOrders      Action = "view_own_orders"
	ActionPlaceOrder         Action = "place_order"
	ActionCreateProduct      Action = "create_product"
	ActionEditProduct        Action = "edit_product"
	ActionDeleteProduct      Action = "delete_product"
	ActionManageUsers        Action = "manage_users"
	ActionManagePickupPoints Action = "manage_pickup_points"
)

// Policy maps every action to the exact roles allowed to invoke it.
// There is no hierarchy: admin is only allowed where it is listed.
var Policy = map[Action][]domain.Role{
	ActionViewCatalog:        domain.Roles,
	ActionFilterCatalog:      {domain.RoleAuthorized, domain.RoleEditor, domain.RoleAdmin},
	ActionViewOwnOrders:      {domain.RoleAuthorized, domain.RoleEditor, domain.RoleAdmin},
	ActionPlaceOrder:         {domain.RoleAuthorized},
	ActionCreateProduct:      {domain.RoleAdmin},
	ActionEditProduct:        {domain.RoleEditor, domain.RoleAdmin},
	ActionDeleteProduct:      {domain.RoleAdmin},
	ActionManageUsers:        {domain.RoleAdmin},
	ActionManagePickupPoints: {domain.RoleAdmin},
}

// Allowed reports whether role may invoke action. Unknown actions are denied.
func Allowed(role domain.Role, action Action) bool {
	return slices.Contains(Policy[action], role)
}
