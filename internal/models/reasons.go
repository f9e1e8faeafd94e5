package models

// Reason codes returned in the gateway error body's "reason" field.
// Callers branch on these, never on message text.
const (
	ReasonWorkspaceHasMembers       = "WORKSPACE_HAS_MEMBERS"
	ReasonAccountHasSharedWorkspace = "ACCOUNT_HAS_SHARED_WORKSPACES"
	ReasonInviteTokenInvalid        = "INVITE_TOKEN_INVALID"
	ReasonAlreadyMember             = "ALREADY_MEMBER"
	ReasonEmailNotVerified          = "EMAIL_NOT_VERIFIED"
	ReasonPlanLimitReached          = "PLAN_LIMIT_REACHED"
	ReasonLastOwner                 = "LAST_OWNER"
)
