package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenter_Render(t *testing.T) {
	p := NewPresenter()

	tests := []struct {
		name        string
		view        View
		wantSummary string
		wantDetails []string
	}{
		{
			name: "rejection",
			view: View{
				Entry: Entry{Action: ActionPostReject, Message: Message{
					"rationale": "too long",
					"returned":  true,
					"notified":  true,
					"deltas": map[string]interface{}{
						"categories": map[string]interface{}{"added": []interface{}{"Rejected"}, "removed": []interface{}{"Pending"}},
					},
				}},
				ActorName:  "Cole Pyeditor",
				TargetName: "Prof spotted in MC",
			},
			wantSummary: "Cole Pyeditor rejected Prof spotted in MC",
			wantDetails: []string{
				`Gave rationale: "too long"`,
				"Notified author of rejection",
				"Changed status from pending to draft",
				"Removed categories Pending",
				"Added categories Rejected",
			},
		},
		{
			name: "update with every delta",
			view: View{
				Entry: Entry{Action: ActionPostUpdate, Message: Message{"deltas": map[string]interface{}{
					"tags":    map[string]interface{}{"added": []interface{}{"v150i3"}},
					"status":  map[string]interface{}{"old": "draft", "new": "pending"},
					"content": true,
				}}},
				ActorName:  "Ada Admin",
				TargetName: "Prof spotted in MC",
			},
			wantSummary: "Ada Admin updated Prof spotted in MC",
			wantDetails: []string{"Added tags v150i3", "Changed status from draft to pending", "Updated content"},
		},
		{
			name:        "deleted article keeps its title",
			view:        View{Entry: Entry{Action: ActionPostDelete, Message: Message{"post_title": "Old news"}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin deleted article Old news",
		},
		{
			name:        "plugin",
			view:        View{Entry: Entry{Action: ActionPluginDelete, Message: Message{"plugin_location": "hello.php"}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin deactivated plugin hello.php",
		},
		{
			name: "first current issue",
			view: View{Entry: Entry{Action: ActionCurrentIssueUpdate, Message: Message{
				"old_tag": nil, "new_tag": "v150i1", "num_posts": float64(0),
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin updated current issue settings",
			wantDetails: []string{"Set current issue to v150i1"},
		},
		{
			name: "current issue rollover",
			view: View{Entry: Entry{Action: ActionCurrentIssueUpdate, Message: Message{
				"old_tag": "v150i1", "new_tag": "v150i2", "num_posts": float64(7),
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin updated current issue settings",
			wantDetails: []string{
				"Changed current issue from v150i1 to v150i2",
				"Changed status of 7 article(s) from pending to draft",
			},
		},
		{
			name: "setting added",
			view: View{Entry: Entry{Action: ActionSettingsUpdate, Message: Message{
				"option": "blogname", "old_value": nil, "new_value": `"mathNEWS"`,
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin updated setting blogname",
			wantDetails: []string{`Set value to "mathNEWS"`},
		},
		{
			name: "setting changed",
			view: View{Entry: Entry{Action: ActionSettingsUpdate, Message: Message{
				"option": "posts_per_page", "old_value": "10", "new_value": "20",
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin updated setting posts_per_page",
			wantDetails: []string{"Changed value from 10 to 20"},
		},
		{
			name:        "user created",
			view:        View{Entry: Entry{Action: ActionUserCreate, Message: Message{"role": "contributor"}}, ActorName: "Ada Admin", TargetName: "writer"},
			wantSummary: "Ada Admin added new user writer",
			wantDetails: []string{"Assigned role contributor"},
		},
		{
			name:        "user deleted with posts",
			view:        View{Entry: Entry{Action: ActionUserDelete, Message: Message{"user_login": "gone"}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin deleted user gone",
			wantDetails: []string{"Deleted all articles"},
		},
		{
			name: "user deleted with reassignment",
			view: View{Entry: Entry{Action: ActionUserDelete, Message: Message{
				"user_login": "gone", "reassigned_user": float64(9), "reassigned_login": "writer",
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin deleted user gone",
			wantDetails: []string{"Reassigned articles to writer"},
		},
		{
			name: "reassigned to a user who is gone",
			view: View{Entry: Entry{Action: ActionUserDelete, Message: Message{
				"user_login": "gone", "reassigned_user": float64(12),
			}}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin deleted user gone",
			wantDetails: []string{"Reassigned articles to user #12"},
		},
		{
			name: "role change",
			view: View{Entry: Entry{Action: ActionUserRoleUpdate, Message: Message{
				"new_role": "editor", "old_roles": []interface{}{"subscriber", "author"},
			}}, ActorName: "Ada Admin", TargetName: "writer"},
			wantSummary: "Ada Admin updated roles for writer",
			wantDetails: []string{"Removed roles author, subscriber", "Added role editor"},
		},
		{
			name:        "password reset",
			view:        View{Entry: Entry{Action: ActionUserPasswordReset, Message: Message{}}, ActorName: "Ada Admin", TargetName: "writer"},
			wantSummary: "Ada Admin reset password for writer",
		},
		{
			name:        "unknown action",
			view:        View{Entry: Entry{Action: "theme.switch"}, ActorName: "Ada Admin"},
			wantSummary: "Ada Admin performed theme.switch",
		},
		{
			name:        "missing actor name",
			view:        View{Entry: Entry{Action: ActionPageCreate}, TargetName: "Masthead"},
			wantSummary: "[deleted user] created page Masthead",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.view
			p.Render(&v)
			assert.Equal(t, tt.wantSummary, v.Summary)
			assert.Equal(t, tt.wantDetails, v.Details)
		})
	}
}

func TestPresenter_ActionFilters(t *testing.T) {
	filters := NewPresenter().ActionFilters()
	assert.Len(t, filters, 15)
	assert.Equal(t, ActionFilter{Value: ActionCurrentIssueUpdate, Label: "Current Issue - Update"}, filters[0])
	assert.Contains(t, filters, ActionFilter{Value: ActionPostCreate, Label: "Article - Create"})
	assert.Equal(t, ActionFilter{Value: "user.update", Label: "User - Update"}, filters[14])
}
