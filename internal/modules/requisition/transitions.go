package requisition

// Action names one lifecycle operation for permission checks.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionRevert   Action = "revert"
	ActionResubmit Action = "resubmit"
	ActionOrder    Action = "order"
	ActionReceive  Action = "receive"
	ActionComplete Action = "complete"
)

// transitionRule is one row of the lifecycle table: the source states an
// action is legal from and the roles allowed to perform it. An empty role
// list means any authenticated actor.
type transitionRule struct {
	from  []Status
	roles []string
}

var transitionRules = map[Action]transitionRule{
	ActionApprove:  {from: []Status{StatusPendingApproval}, roles: []string{RoleCompanyOwner}},
	ActionReject:   {from: []Status{StatusPendingApproval}, roles: []string{RoleDepartmentManager, RoleSupervisor}},
	ActionRevert:   {from: []Status{StatusPendingApproval}, roles: []string{RoleCompanyOwner}},
	ActionResubmit: {from: []Status{StatusReverted}},
	ActionOrder:    {from: []Status{StatusApproved}, roles: []string{RoleSupervisor}},
	ActionReceive:  {from: []Status{StatusOrdered, StatusPartiallyReceived}, roles: []string{RoleInventoryManager, RoleSupervisor}},
	ActionComplete: {from: []Status{StatusMaterialReceived}, roles: []string{RoleInventoryManager, RoleSupervisor}},
}

// allowed reports whether action is legal from the given status for the
// given role. Pure; shared by the mutating operations and CanPerform.
func allowed(action Action, from Status, role string) bool {
	rule, ok := transitionRules[action]
	if !ok {
		return false
	}
	legalFrom := false
	for _, s := range rule.from {
		if s == from {
			legalFrom = true
			break
		}
	}
	if !legalFrom {
		return false
	}
	if len(rule.roles) == 0 {
		return true
	}
	for _, r := range rule.roles {
		if r == role {
			return true
		}
	}
	return false
}
