package shared

// PermAdministrator is the sentinel permission granting unrestricted access.
const PermAdministrator = "administrator"

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
)

// Scholarship workflow permissions.
const (
	PermApplicationsView   = "applications.view"
	PermApplicationsReview = "applications.review"

	PermDocumentsView   = "documents.view"
	PermDocumentsManage = "documents.manage"

	PermEvaluationsEdit = "evaluations.edit"

	PermInterviewsView     = "interviews.view"
	PermInterviewsSchedule = "interviews.schedule"

	PermNotificationsSend = "notifications.send"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
	}
}

// WorkflowScopes lists all permissions related to the scholarship workflow.
func WorkflowScopes() []string {
	return []string{
		PermApplicationsView,
		PermApplicationsReview,
		PermDocumentsView,
		PermDocumentsManage,
		PermEvaluationsEdit,
		PermInterviewsView,
		PermInterviewsSchedule,
		PermNotificationsSend,
	}
}
