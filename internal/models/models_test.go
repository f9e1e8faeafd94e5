package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/output"
)

func TestNewPagination_Invariants(t *testing.T) {
	for _, tc := range []struct {
		page, limit, total int
	}{
		{1, 20, 0}, {1, 20, 19}, {1, 20, 20}, {1, 20, 21},
		{2, 20, 45}, {3, 20, 45}, {4, 20, 45}, {7, 10, 3},
	} {
		p := NewPagination(tc.page, tc.limit, tc.total)
		assert.Equal(t, p.Page < p.TotalPages, p.HasNext, "%+v", tc)
		assert.Equal(t, p.Page > 1, p.HasPrev, "%+v", tc)
		assert.NoError(t, p.Validate(), "%+v", tc)
	}
}

func TestNewPagination_Values(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
	assert.False(t, p.Beyond())

	empty := NewPagination(0, 0, -5)
	assert.Equal(t, Pagination{Page: 1, Limit: 1}, empty)

	beyond := NewPagination(9, 20, 45)
	assert.True(t, beyond.Beyond())
	assert.False(t, beyond.HasNext)
}

func TestPagination_ValidateRejectsInconsistent(t *testing.T) {
	bad := []Pagination{
		{Page: 0, Limit: 20},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 20, Total: -1},
		{Page: 1, Limit: 20, Total: 40, TotalPages: 2, HasNext: false},
		{Page: 2, Limit: 20, Total: 40, TotalPages: 2, HasPrev: false},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestPageValidate_ChecksItems(t *testing.T) {
	page := Page[Task]{
		Data:       []Task{{ID: "t1", Status: StatusTodo}, {ID: "t2", Status: "BLOCKED"}},
		Pagination: NewPagination(1, 20, 2),
	}
	err := page.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")

	page.Data[1].Status = StatusDone
	assert.NoError(t, page.Validate())
}

func TestTaskDecodeShape(t *testing.T) {
	raw := `{"id":"t1","projectId":"p1","title":"Ship","status":"IN_PROGRESS","priority":"HIGH","position":2,"dueDate":null}`
	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, 2, task.Position)
	assert.Nil(t, task.DueDate)
	assert.NoError(t, task.Validate())
	assert.Equal(t, "t1", task.RecordID())
}

func TestDTOValidation(t *testing.T) {
	assert.Error(t, User{}.Validate())
	assert.Error(t, Workspace{ID: "w1", AccessLevel: "ADMIN"}.Validate())
	assert.NoError(t, Workspace{ID: "w1"}.Validate())
	assert.Error(t, Member{UserID: "u1", AccessLevel: "GUEST"}.Validate())
	assert.Error(t, Task{ID: "t1", Status: StatusTodo, Position: -1}.Validate())
	assert.Error(t, InviteLink{}.Validate())
	assert.Error(t, Documentation{Content: json.RawMessage(`"text"`)}.Validate())
	assert.NoError(t, Documentation{Content: json.RawMessage(`{"type":"doc"}`)}.Validate())
	assert.Error(t, Subscription{Plan: "GOLD"}.Validate())
	assert.Error(t, Order{OrderID: "o1", Amount: 0, Currency: "INR"}.Validate())
	assert.NoError(t, Order{OrderID: "o1", Amount: 49900, Currency: "INR"}.Validate())
}

func TestPaymentVerificationWireNames(t *testing.T) {
	b, err := json.Marshal(PaymentVerification{OrderID: "o", PaymentID: "p", Signature: "s", Plan: PlanPro, Frequency: FrequencyYearly})
	require.NoError(t, err)
	assert.JSONEq(t, `{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"s","plan":"PRO","frequency":"yearly"}`, string(b))
}

func TestDocumentationPath(t *testing.T) {
	p, err := DocumentationPath(EntityTask, "t1")
	require.NoError(t, err)
	assert.Equal(t, "/tasks/t1/documentation", p)

	p, err = DocumentationPath(EntityProject, "p1")
	require.NoError(t, err)
	assert.Equal(t, "/projects/p1/documentation", p)

	_, err = DocumentationPath("comment", "c1")
	assert.Error(t, err)
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("name", "Acme"))
	assertValidation(t, ValidateName("name", "   "))
	long := make([]rune, 101)
	for i := range long {
		long[i] = 'x'
	}
	assertValidation(t, ValidateName("name", string(long)))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Sup3rsecret"))
	assertValidation(t, ValidatePassword("Short1"))
	assertValidation(t, ValidatePassword("alllowercase1"))
	assertValidation(t, ValidatePassword("NoDigitsHere"))
}

func TestValidateConfirmationAndMatch(t *testing.T) {
	assert.NoError(t, ValidateConfirmation("DELETE", "DELETE"))
	assertValidation(t, ValidateConfirmation("DELETE", "delete"))
	assert.NoError(t, ValidateMatch("password", "a", "a"))
	assertValidation(t, ValidateMatch("password", "a", "b"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	assertValidation(t, ValidateEmail("Ada <ada@example.com>"))
	assertValidation(t, ValidateEmail("not-an-email"))
}

func TestParseEnums(t *testing.T) {
	st, err := ParseStatus("in-progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)
	_, err = ParseStatus("blocked")
	assertValidation(t, err)

	p, err := ParsePriority("urgent")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	a, err := ParseAccessLevel("viewer")
	require.NoError(t, err)
	assert.Equal(t, AccessViewer, a)

	plan, err := ParsePlan("pro")
	require.NoError(t, err)
	assert.Equal(t, PlanPro, plan)

	f, err := ParseFrequency("Yearly")
	require.NoError(t, err)
	assert.Equal(t, FrequencyYearly, f)
	_, err = ParseFrequency("weekly")
	assertValidation(t, err)
}

func TestTaskStatusLabel(t *testing.T) {
	assert.Equal(t, "In Review", StatusInReview.Label())
	assert.Len(t, TaskStatuses, 4)
}
