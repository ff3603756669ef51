package site

// Capabilities checked by masthead
const (
	CapManageOptions     = "manage_options"
	CapEditOthersPosts   = "edit_others_posts"
	CapDeleteOthersPosts = "delete_others_posts"
	CapActivatePlugins   = "activate_plugins"
	CapCreateUsers       = "create_users"
	CapPublishPosts      = "publish_posts"
	CapEditPosts         = "edit_posts"
)

// Roles
const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleAuthor        = "author"
	RoleContributor   = "contributor"
	RoleSubscriber    = "subscriber"
)

// roleCapabilities follows the CMS defaults for the capabilities listed above
var roleCapabilities = map[string]map[string]bool{
	RoleAdministrator: {
		CapManageOptions:     true,
		CapEditOthersPosts:   true,
		CapDeleteOthersPosts: true,
		CapActivatePlugins:   true,
		CapCreateUsers:       true,
		CapPublishPosts:      true,
		CapEditPosts:         true,
	},
	RoleEditor: {
		CapEditOthersPosts:   true,
		CapDeleteOthersPosts: true,
		CapPublishPosts:      true,
		CapEditPosts:         true,
	},
	RoleAuthor: {
		CapPublishPosts: true,
		CapEditPosts:    true,
	},
	RoleContributor: {
		CapEditPosts: true,
	},
	RoleSubscriber: {},
}

// RolesCan reports whether any of roles grants capability
func RolesCan(roles []string, capability string) bool {
	for _, role := range roles {
		if roleCapabilities[role][capability] {
			return true
		}
	}
	return false
}
