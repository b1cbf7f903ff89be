package model

// Action is a privileged operation gated by role.
type Action string

const (
	ActionCreateSales         Action = "CREATE_SALES"
	ActionEditSales           Action = "EDIT_SALES"
	ActionDeleteSales         Action = "DELETE_SALES"
	ActionCreatePurchases     Action = "CREATE_PURCHASES"
	ActionManageInventory     Action = "MANAGE_INVENTORY"
	ActionManageExpenses      Action = "MANAGE_EXPENSES"
	ActionViewReports         Action = "VIEW_REPORTS"
	ActionExportData          Action = "EXPORT_DATA"
	ActionRequestUpgrade      Action = "REQUEST_UPGRADE"
	ActionManageUsers         Action = "MANAGE_USERS"
	ActionViewSystemLogs      Action = "VIEW_SYSTEM_LOGS"
	ActionVerifyPayments      Action = "VERIFY_PAYMENTS"
	ActionManageSubscriptions Action = "MANAGE_SUBSCRIPTIONS"
)

// permissions is an explicit allow-list; a role is never granted an action
// just because it outranks a role that has it.
var permissions = map[Action][]Role{
	ActionCreateSales:         {RoleAdmin, RoleStaff, RoleUser},
	ActionEditSales:           {RoleAdmin, RoleStaff, RoleUser},
	ActionDeleteSales:         {RoleAdmin, RoleUser},
	ActionCreatePurchases:     {RoleAdmin, RoleStaff, RoleUser},
	ActionManageInventory:     {RoleAdmin, RoleStaff, RoleUser},
	ActionManageExpenses:      {RoleAdmin, RoleUser},
	ActionViewReports:         {RoleAdmin, RoleStaff, RoleViewer, RoleUser},
	ActionExportData:          {RoleAdmin, RoleStaff, RoleUser},
	ActionRequestUpgrade:      {RoleAdmin, RoleUser},
	ActionManageUsers:         {RoleAdmin},
	ActionViewSystemLogs:      {RoleAdmin},
	ActionVerifyPayments:      {RoleAdmin},
	ActionManageSubscriptions: {RoleAdmin},
}

// HasPermission is a pure set-membership test against the allow-list.
func HasPermission(r Role, a Action) bool {
	for _, allowed := range permissions[a] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of a use case.
type Actor struct {
	AccountID string
	Role      Role
}

func (a Actor) Can(action Action) bool { return HasPermission(a.Role, action) }
