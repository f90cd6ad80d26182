package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    PostStatus
		action  WorkflowAction
		want    PostStatus
		wantErr bool
	}{
		{"submit draft", StatusDraft, ActionSubmit, StatusPendingApproval, false},
		{"approve pending", StatusPendingApproval, ActionApprove, StatusPublished, false},
		{"reject pending", StatusPendingApproval, ActionReject, StatusRejected, false},
		{"submit pending", StatusPendingApproval, ActionSubmit, StatusPendingApproval, true},
		{"approve draft", StatusDraft, ActionApprove, StatusDraft, true},
		{"reject draft", StatusDraft, ActionReject, StatusDraft, true},
		{"submit published", StatusPublished, ActionSubmit, StatusPublished, true},
		{"approve published", StatusPublished, ActionApprove, StatusPublished, true},
		{"resubmit rejected", StatusRejected, ActionSubmit, StatusRejected, true},
		{"approve rejected", StatusRejected, ActionApprove, StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.action)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, CodeInvalidState, appErr.Code)
				// A refused transition leaves the status alone.
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostCanEdit(t *testing.T) {
	admin := &User{ID: 1, Role: RoleAdmin, Status: StatusActive}
	author := &User{ID: 5, Role: RoleMember, Status: StatusActive}
	stranger := &User{ID: 9, Role: RoleMember, Status: StatusActive}
	inactiveAuthor := &User{ID: 5, Role: RoleMember, Status: StatusInactive}

	for _, status := range []PostStatus{StatusDraft, StatusPendingApproval} {
		post := &Post{AuthorID: 5, Status: status}
		assert.True(t, post.CanEdit(author), "author edits own %s", status)
		assert.True(t, post.CanEdit(admin))
		assert.False(t, post.CanEdit(stranger))
		assert.False(t, post.CanEdit(inactiveAuthor))
	}

	published := &Post{AuthorID: 5, Status: StatusPublished}
	assert.False(t, published.CanEdit(author))
	assert.True(t, published.CanEdit(admin))
}

func TestPostCanDelete(t *testing.T) {
	admin := &User{ID: 1, Role: RoleAdmin, Status: StatusActive}
	author := &User{ID: 5, Role: RoleMember, Status: StatusActive}

	draft := &Post{AuthorID: 5, Status: StatusDraft}
	assert.True(t, draft.CanDelete(author))

	// Once out of draft only moderators may delete.
	for _, status := range []PostStatus{StatusPendingApproval, StatusPublished, StatusRejected} {
		post := &Post{AuthorID: 5, Status: status}
		assert.False(t, post.CanDelete(author), "author deleting %s", status)
		assert.True(t, post.CanDelete(admin))
	}
}
