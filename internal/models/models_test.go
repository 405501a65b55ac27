package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "FIRM", want: RoleFirm},
		{in: " student ", want: RoleStudent},
		{in: "Admin", want: RoleAdmin},
		{in: "owner", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"ADMIN"}`, string(b))

	var out struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"firm"}`), &out))
	assert.Equal(t, RoleFirm, out.Role)
}

func TestSwitchRole_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		SwitchRole(Role(42), func() int { return 1 }, func() int { return 2 }, func() int { return 3 })
	})
}

func TestNewSubscription(t *testing.T) {
	firm := NewSubscription(RoleFirm, 2)
	assert.Equal(t, StatusInactive, firm.Status)
	assert.Equal(t, 2, firm.AllowedEntries)
	assert.Equal(t, 2, firm.Remaining())

	student := NewSubscription(RoleStudent, 2)
	assert.Equal(t, 0, student.AllowedEntries)

	unlimited := Subscription{AllowedEntries: UnlimitedEntries, EntriesUsed: 40}
	assert.True(t, unlimited.Unlimited())
	assert.Equal(t, UnlimitedEntries, unlimited.Remaining())
}

func TestPlan_Months(t *testing.T) {
	assert.Equal(t, 1, PlanMonthly.Months())
	assert.Equal(t, 6, PlanSixMonth.Months())
	assert.Equal(t, 12, PlanYearly.Months())
	assert.Equal(t, 0, PlanFree.Months())

	_, err := ParsePlan("weekly")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestForm_MatchesAdminCode(t *testing.T) {
	form := Form{AdminCodes: []string{"X"}}
	assert.True(t, form.MatchesAdminCode("x "))
	assert.True(t, form.MatchesAdminCode(" X"))

	other := Form{AdminCodes: []string{"Y", "Z"}}
	assert.False(t, other.MatchesAdminCode("X"))
	assert.False(t, other.MatchesAdminCode(""))
}

func TestForm_CloneIsDeep(t *testing.T) {
	orig := Form{
		AdminCodes:        []string{"A"},
		AdminFees:         &FeeRange{From: 1, To: 2},
		StudentSubmission: &StudentSubmission{StudentID: "s1", SubmittedAt: time.Now()},
	}
	cp := orig.Clone()
	cp.AdminCodes[0] = "B"
	cp.AdminFees.To = 10
	cp.StudentSubmission.StudentID = "s2"

	assert.Equal(t, "A", orig.AdminCodes[0])
	assert.Equal(t, 2, orig.AdminFees.To)
	assert.Equal(t, "s1", orig.StudentSubmission.StudentID)
}

func TestUser_NotificationsAreCopied(t *testing.T) {
	u := User{Notifications: []Notification{{ID: "1"}}}
	u2 := u.WithNotification(Notification{ID: "2"})
	require.Len(t, u.Notifications, 1)
	require.Len(t, u2.Notifications, 2)

	read := u2.WithNotificationsRead()
	assert.Empty(t, read.Unread())
	assert.Len(t, u2.Unread(), 2)
}

func TestQuotaError_IsValidation(t *testing.T) {
	err := error(QuotaError{Limit: 2, Used: 2})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "2 of 2")
}
