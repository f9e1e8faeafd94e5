// Package models provides canonical type definitions for TaskHub API entities.
// These types are decoded at the gateway boundary and validated before they
// reach the cache or any view.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AccessLevel is a member's role within a workspace.
type AccessLevel string

const (
	AccessOwner  AccessLevel = "OWNER"
	AccessMember AccessLevel = "MEMBER"
	AccessViewer AccessLevel = "VIEWER"
)

// Valid reports whether the access level is one of the known roles.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessOwner, AccessMember, AccessViewer:
		return true
	}
	return false
}

// TaskStatus is the kanban column a task belongs to.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists statuses in board column order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusInReview, StatusDone}

// Valid reports whether the status is one of the fixed board columns.
func (s TaskStatus) Valid() bool {
	for _, st := range TaskStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Label returns a human-readable column title.
func (s TaskStatus) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusInReview:
		return "In Review"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Priority is a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Valid reports whether the plan is known.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Frequency is a billing cycle.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether the frequency is known.
func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyYearly
}

// User is the authenticated account.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Workspace is the top-level tenant container.
type Workspace struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	OwnerID      string      `json:"ownerId"`
	AccessLevel  AccessLevel `json:"accessLevel,omitempty"`
	MembersCount int         `json:"membersCount"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Member is a user's membership in a workspace.
type Member struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	AccessLevel AccessLevel `json:"accessLevel"`
	JoinedAt    time.Time   `json:"joinedAt"`
}

// Project is a collection of tasks within a workspace.
type Project struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TasksCount  int       `json:"tasksCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task is a unit of work positioned in a kanban column.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Position    int        `json:"position"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Comment is a note left on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Activity is one entry in an activity feed.
type Activity struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorId"`
	Actor      string    `json:"actor"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"createdAt"`
}

// InviteLink is a shareable workspace-join credential.
type InviteLink struct {
	WorkspaceID string    `json:"workspaceId"`
	Token       string    `json:"token"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Documentation is a serialized rich-text editor state owned by a task or project.
type Documentation struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Content    json.RawMessage `json:"content"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Subscription is the account's billing state.
type Subscription struct {
	ID        string     `json:"id"`
	Plan      Plan       `json:"plan"`
	Frequency Frequency  `json:"frequency,omitempty"`
	Status    string     `json:"status"`
	RenewsAt  *time.Time `json:"renewsAt,omitempty"`
}

// Order is the payment descriptor handed to the hosted checkout.
type Order struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// PaymentVerification is forwarded verbatim from the checkout to the gateway.
// The client never inspects the signature.
type PaymentVerification struct {
	OrderID   string    `json:"razorpay_order_id"`
	PaymentID string    `json:"razorpay_payment_id"`
	Signature string    `json:"razorpay_signature"`
	Plan      Plan      `json:"plan"`
	Frequency Frequency `json:"frequency"`
}

// Entity types that own documentation.
const (
	EntityTask    = "task"
	EntityProject = "project"
)

// DocumentationPath returns the gateway path for an entity's documentation.
func DocumentationPath(entityType, entityID string) (string, error) {
	switch entityType {
	case EntityTask:
		return "/tasks/" + entityID + "/documentation", nil
	case EntityProject:
		return "/projects/" + entityID + "/documentation", nil
	}
	return "", fmt.Errorf("unknown entity type %q", entityType)
}
