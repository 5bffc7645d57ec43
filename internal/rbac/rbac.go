package rbac

type Role string
type Action string

const (
	RoleViewer   Role = "viewer"
	RoleStaff    Role = "staff"
	RoleMerchant Role = "merchant"
)

const (
	ActionView       Action = "view"
	ActionRecordSale Action = "record_sale"
	ActionRestock    Action = "restock"
	ActionRetrain    Action = "retrain"
)

// Can reports whether role may perform action. Retraining recomputes the
// shared model and is reserved for merchants.
func Can(role Role, action Action) bool {
	switch role {
	case RoleMerchant:
		return true
	case RoleStaff:
		return action == ActionView || action == ActionRecordSale || action == ActionRestock
	case RoleViewer:
		return action == ActionView
	default:
		return false
	}
}

// Normalize maps a token role claim to a Role. Accounts without an app role
// (the provider's plain "authenticated") own their shop and act as merchants.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleStaff, RoleMerchant:
		return Role(role)
	case "", "authenticated":
		return RoleMerchant
	default:
		return RoleViewer
	}
}
