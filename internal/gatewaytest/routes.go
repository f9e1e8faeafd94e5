package gatewaytest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhub/taskhub-cli/internal/board"
	"github.com/taskhub/taskhub-cli/internal/models"
)

// -- Account

func (g *Gateway) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleted || in.Email != g.user.Email || in.Password != g.password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": g.Token, "user": g.user})
}

func (g *Gateway) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != VerifyToken {
		writeError(w, http.StatusBadRequest, "Verification link is invalid or expired", "")
		return
	}
	g.mu.Lock()
	g.user.EmailVerified = true
	g.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

func (g *Gateway) me(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	writeJSON(w, http.StatusOK, g.user)
}

func (g *Gateway) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if in.CurrentPassword != g.password {
		writeError(w, http.StatusBadRequest, "Current password is incorrect", "")
		return
	}
	g.password = in.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (g *Gateway) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Confirmation string `json:"confirmation"`
		ForceDelete  bool   `json:"forceDelete"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if in.Confirmation != "DELETE" {
		writeError(w, http.StatusBadRequest, "Confirmation text does not match", "")
		return
	}
	if !in.ForceDelete {
		for id, ws := range g.workspaces {
			if ws.OwnerID == g.user.ID && len(g.members[id]) > 1 {
				writeError(w, http.StatusConflict,
					"You own workspaces shared with other members", models.ReasonAccountHasSharedWorkspace)
				return
			}
		}
	}
	for id, ws := range g.workspaces {
		if ws.OwnerID == g.user.ID {
			delete(g.workspaces, id)
			delete(g.members, id)
		}
	}
	g.deleted = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// -- Workspaces

func (g *Gateway) workspaceLocked(w http.ResponseWriter, id string) *models.Workspace {
	ws, ok := g.workspaces[id]
	if !ok || !g.isMemberLocked(id, g.user.ID) {
		writeError(w, http.StatusNotFound, "Workspace not found", "")
		return nil
	}
	return ws
}

func (g *Gateway) listWorkspaces(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []models.Workspace{}
	for id, ws := range g.workspaces {
		if g.isMemberLocked(id, g.user.ID) {
			out = append(out, *ws)
		}
	}
	slices.SortFunc(out, func(a, b models.Workspace) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) getWorkspace(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ws := g.workspaceLocked(w, chi.URLParam(r, "id")); ws != nil {
		writeJSON(w, http.StatusOK, ws)
	}
}

func (g *Gateway) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Description string }
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required", "")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextIDLocked("w")
	now := g.nowLocked()
	ws := &models.Workspace{
		ID: id, Name: in.Name, Description: in.Description, OwnerID: g.user.ID,
		AccessLevel: models.AccessOwner, CreatedAt: now,
	}
	g.workspaces[id] = ws
	g.members[id] = []models.Member{{
		ID: g.nextIDLocked("m"), UserID: g.user.ID, Name: g.user.Name, Email: g.user.Email,
		AccessLevel: models.AccessOwner, JoinedAt: now,
	}}
	g.refreshCountsLocked()
	g.logLocked("created", "workspace", id, "created workspace "+in.Name)
	writeJSON(w, http.StatusCreated, ws)
}

func (g *Gateway) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Description string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	ws.Name, ws.Description = in.Name, in.Description
	g.logLocked("updated", "workspace", ws.ID, "renamed workspace to "+in.Name)
	writeJSON(w, http.StatusOK, ws)
}

func (g *Gateway) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	if ws.OwnerID != g.user.ID {
		writeError(w, http.StatusForbidden, "Only the owner can delete a workspace", "")
		return
	}
	if len(g.members[ws.ID]) > 1 && r.URL.Query().Get("force") != "true" {
		writeError(w, http.StatusConflict, "Workspace still has other members", models.ReasonWorkspaceHasMembers)
		return
	}
	delete(g.workspaces, ws.ID)
	delete(g.members, ws.ID)
	delete(g.invites, ws.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) listMembers(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ws := g.workspaceLocked(w, chi.URLParam(r, "id")); ws != nil {
		writeJSON(w, http.StatusOK, append([]models.Member{}, g.members[ws.ID]...))
	}
}

func (g *Gateway) updateMember(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessLevel models.AccessLevel `json:"accessLevel"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	if !in.AccessLevel.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid access level", "")
		return
	}
	members := g.members[ws.ID]
	i := slices.IndexFunc(members, func(m models.Member) bool { return m.UserID == chi.URLParam(r, "userID") })
	if i < 0 {
		writeError(w, http.StatusNotFound, "Member not found", "")
		return
	}
	if members[i].AccessLevel == models.AccessOwner && in.AccessLevel != models.AccessOwner && g.ownersLocked(ws.ID) == 1 {
		writeError(w, http.StatusConflict, "A workspace needs at least one owner", models.ReasonLastOwner)
		return
	}
	members[i].AccessLevel = in.AccessLevel
	writeJSON(w, http.StatusOK, members[i])
}

func (g *Gateway) ownersLocked(ws string) int {
	n := 0
	for _, m := range g.members[ws] {
		if m.AccessLevel == models.AccessOwner {
			n++
		}
	}
	return n
}

func (g *Gateway) removeMember(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	userID := chi.URLParam(r, "userID")
	members := g.members[ws.ID]
	i := slices.IndexFunc(members, func(m models.Member) bool { return m.UserID == userID })
	if i < 0 {
		writeError(w, http.StatusNotFound, "Member not found", "")
		return
	}
	if members[i].AccessLevel == models.AccessOwner && g.ownersLocked(ws.ID) == 1 {
		writeError(w, http.StatusConflict, "A workspace needs at least one owner", models.ReasonLastOwner)
		return
	}
	g.members[ws.ID] = slices.Delete(members, i, i+1)
	g.refreshCountsLocked()
	w.WriteHeader(http.StatusNoContent)
}

// -- Invite links

func (g *Gateway) newInviteLocked(ws string) *models.InviteLink {
	token := uuid.NewString()
	l := &models.InviteLink{
		WorkspaceID: ws,
		Token:       token,
		URL:         g.Server.URL + "/join/" + token,
		CreatedAt:   g.nowLocked(),
	}
	g.invites[ws] = l
	return l
}

func (g *Gateway) getInvite(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	l := g.invites[ws.ID]
	if l == nil {
		writeError(w, http.StatusNotFound, "No invite link", "")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (g *Gateway) generateInvite(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	if l := g.invites[ws.ID]; l != nil {
		writeJSON(w, http.StatusOK, l)
		return
	}
	writeJSON(w, http.StatusCreated, g.newInviteLocked(ws.ID))
}

func (g *Gateway) resetInvite(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	writeJSON(w, http.StatusOK, g.newInviteLocked(ws.ID))
}

func (g *Gateway) joinWorkspace(w http.ResponseWriter, r *http.Request) {
	var in struct{ Token string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, l := range g.invites {
		if l.Token != in.Token {
			continue
		}
		if g.isMemberLocked(id, g.user.ID) {
			writeError(w, http.StatusConflict, "You are already a member of this workspace", models.ReasonAlreadyMember)
			return
		}
		g.members[id] = append(g.members[id], models.Member{
			ID: g.nextIDLocked("m"), UserID: g.user.ID, Name: g.user.Name, Email: g.user.Email,
			AccessLevel: models.AccessMember, JoinedAt: g.nowLocked(),
		})
		g.refreshCountsLocked()
		ws := *g.workspaces[id]
		ws.AccessLevel = models.AccessMember
		writeJSON(w, http.StatusOK, ws)
		return
	}
	writeError(w, http.StatusBadRequest, "Invite link is invalid or has been reset", models.ReasonInviteTokenInvalid)
}

// -- Projects

func (g *Gateway) projectLocked(w http.ResponseWriter, id string) *models.Project {
	p, ok := g.projects[id]
	if !ok || !g.isMemberLocked(p.WorkspaceID, g.user.ID) {
		writeError(w, http.StatusNotFound, "Project not found", "")
		return nil
	}
	return p
}

func (g *Gateway) listProjects(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	search := strings.ToLower(r.URL.Query().Get("search"))
	var items []models.Project
	for _, p := range g.projects {
		if p.WorkspaceID != ws.ID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		items = append(items, *p)
	}
	slices.SortFunc(items, func(a, b models.Project) int { return strings.Compare(a.ID, b.ID) })
	sortBy(items, r, map[string]func(a, b models.Project) bool{
		"name":      func(a, b models.Project) bool { return a.Name < b.Name },
		"createdAt": func(a, b models.Project) bool { return a.CreatedAt.Before(b.CreatedAt) },
	})
	writeJSON(w, http.StatusOK, paginate(r, items))
}

func (g *Gateway) getProject(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.projectLocked(w, chi.URLParam(r, "id")); p != nil {
		writeJSON(w, http.StatusOK, p)
	}
}

func (g *Gateway) createProject(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Description string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ws := g.workspaceLocked(w, chi.URLParam(r, "id"))
	if ws == nil {
		return
	}
	now := g.nowLocked()
	p := &models.Project{ID: g.nextIDLocked("p"), WorkspaceID: ws.ID, Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	g.projects[p.ID] = p
	g.logLocked("created", "project", p.ID, "created project "+p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (g *Gateway) updateProject(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Description string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.projectLocked(w, chi.URLParam(r, "id"))
	if p == nil {
		return
	}
	p.Name, p.Description, p.UpdatedAt = in.Name, in.Description, g.nowLocked()
	g.logLocked("updated", "project", p.ID, "updated project "+p.Name)
	writeJSON(w, http.StatusOK, p)
}

func (g *Gateway) deleteProject(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.projectLocked(w, chi.URLParam(r, "id"))
	if p == nil {
		return
	}
	delete(g.projects, p.ID)
	for id, t := range g.tasks {
		if t.ProjectID == p.ID {
			delete(g.tasks, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) listProjectMembers(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.projectLocked(w, chi.URLParam(r, "id")); p != nil {
		writeJSON(w, http.StatusOK, append([]models.Member{}, g.members[p.WorkspaceID]...))
	}
}

// -- Tasks

func (g *Gateway) taskLocked(w http.ResponseWriter, id string) *models.Task {
	t, ok := g.tasks[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found", "")
		return nil
	}
	return t
}

func (g *Gateway) projectTasksLocked(projectID string) []models.Task {
	var out []models.Task
	for _, t := range g.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	return out
}

func (g *Gateway) listTasks(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.projectLocked(w, chi.URLParam(r, "id"))
	if p == nil {
		return
	}
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	items := slices.DeleteFunc(g.projectTasksLocked(p.ID), func(t models.Task) bool {
		switch {
		case search != "" && !strings.Contains(strings.ToLower(t.Title), search):
			return true
		case q.Get("status") != "" && string(t.Status) != q.Get("status"):
			return true
		case q.Get("priority") != "" && string(t.Priority) != q.Get("priority"):
			return true
		case q.Get("assigneeId") != "" && t.AssigneeID != q.Get("assigneeId"):
			return true
		}
		return false
	})
	slices.SortFunc(items, func(a, b models.Task) int { return strings.Compare(a.ID, b.ID) })
	sortBy(items, r, map[string]func(a, b models.Task) bool{
		"title":     func(a, b models.Task) bool { return a.Title < b.Title },
		"createdAt": func(a, b models.Task) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"dueDate": func(a, b models.Task) bool {
			return a.DueDate != nil && (b.DueDate == nil || a.DueDate.Before(*b.DueDate))
		},
	})
	writeJSON(w, http.StatusOK, paginate(r, items))
}

func (g *Gateway) board(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.projectLocked(w, chi.URLParam(r, "id"))
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, board.FromTasks(g.projectTasksLocked(p.ID)).Tasks())
}

func (g *Gateway) getTask(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t := g.taskLocked(w, chi.URLParam(r, "id")); t != nil {
		writeJSON(w, http.StatusOK, t)
	}
}

func (g *Gateway) createTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		Priority    models.Priority   `json:"priority"`
		AssigneeID  string            `json:"assigneeId"`
		DueDate     *time.Time        `json:"dueDate"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.projectLocked(w, chi.URLParam(r, "id"))
	if p == nil {
		return
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	pos := len(board.FromTasks(g.projectTasksLocked(p.ID)).Column(in.Status))
	now := g.nowLocked()
	t := &models.Task{
		ID: g.nextIDLocked("t"), ProjectID: p.ID, Title: in.Title, Description: in.Description,
		Status: in.Status, Priority: in.Priority, Position: pos, AssigneeID: in.AssigneeID,
		DueDate: in.DueDate, CreatedAt: now, UpdatedAt: now,
	}
	g.tasks[t.ID] = t
	g.refreshCountsLocked()
	g.logLocked("created", "task", t.ID, "created task "+t.Title)
	writeJSON(w, http.StatusCreated, t)
}

func (g *Gateway) updateTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		Status      *models.TaskStatus `json:"status"`
		Priority    *models.Priority   `json:"priority"`
		AssigneeID  *string            `json:"assigneeId"`
		DueDate     *time.Time         `json:"dueDate"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.taskLocked(w, chi.URLParam(r, "id"))
	if t == nil {
		return
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssigneeID != nil {
		t.AssigneeID = *in.AssigneeID
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Status != nil && *in.Status != t.Status {
		g.moveLocked(t, *in.Status, len(board.FromTasks(g.projectTasksLocked(t.ProjectID)).Column(*in.Status)))
	}
	t.UpdatedAt = g.nowLocked()
	g.logLocked("updated", "task", t.ID, "updated task "+t.Title)
	writeJSON(w, http.StatusOK, t)
}

func (g *Gateway) deleteTask(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.taskLocked(w, chi.URLParam(r, "id"))
	if t == nil {
		return
	}
	delete(g.tasks, t.ID)
	delete(g.comments, t.ID)
	g.renumberLocked(t.ProjectID)
	g.refreshCountsLocked()
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) moveTask(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status   models.TaskStatus `json:"status"`
		Position int               `json:"position"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.taskLocked(w, chi.URLParam(r, "id"))
	if t == nil {
		return
	}
	if !in.Status.Valid() || in.Position < 0 {
		writeError(w, http.StatusBadRequest, "Invalid move", "")
		return
	}
	from := t.Status
	g.moveLocked(t, in.Status, in.Position)
	g.logLocked("moved", "task", t.ID, "moved from "+from.Label()+" to "+in.Status.Label())
	writeJSON(w, http.StatusOK, t)
}

// moveLocked moves t and writes the renumbered columns back.
func (g *Gateway) moveLocked(t *models.Task, to models.TaskStatus, pos int) {
	b, err := board.Move(board.FromTasks(g.projectTasksLocked(t.ProjectID)), t.ID, to, pos)
	if err != nil {
		return
	}
	for _, bt := range b.Tasks() {
		st := g.tasks[bt.ID]
		st.Status, st.Position = bt.Status, bt.Position
	}
}

func (g *Gateway) renumberLocked(projectID string) {
	for _, bt := range board.FromTasks(g.projectTasksLocked(projectID)).Tasks() {
		g.tasks[bt.ID].Position = bt.Position
	}
}

// -- Comments and activities

func (g *Gateway) listComments(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.taskLocked(w, chi.URLParam(r, "id"))
	if t == nil {
		return
	}
	items := slices.Clone(g.comments[t.ID])
	slices.Reverse(items)
	writeJSON(w, http.StatusOK, paginate(r, items))
}

func (g *Gateway) addComment(w http.ResponseWriter, r *http.Request) {
	var in struct{ Content string }
	if !decodeBody(w, r, &in) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.taskLocked(w, chi.URLParam(r, "id"))
	if t == nil {
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty", "")
		return
	}
	c := models.Comment{
		ID: g.nextIDLocked("c"), TaskID: t.ID, AuthorID: g.user.ID, Author: g.user.Name,
		Content: in.Content, CreatedAt: g.nowLocked(),
	}
	g.comments[t.ID] = append(g.comments[t.ID], c)
	g.logLocked("commented", "task", t.ID, "commented on "+t.Title)
	writeJSON(w, http.StatusCreated, c)
}

func (g *Gateway) deleteComment(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := chi.URLParam(r, "id")
	for taskID, cs := range g.comments {
		if i := slices.IndexFunc(cs, func(c models.Comment) bool { return c.ID == id }); i >= 0 {
			if cs[i].AuthorID != g.user.ID {
				writeError(w, http.StatusForbidden, "You can only delete your own comments", "")
				return
			}
			g.comments[taskID] = slices.Delete(cs, i, i+1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Comment not found", "")
}

func (g *Gateway) listActivities(entityType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		g.mu.Lock()
		defer g.mu.Unlock()
		var items []models.Activity
		for i := len(g.activities) - 1; i >= 0; i-- {
			a := g.activities[i]
			if g.activityInScopeLocked(a, entityType, id) {
				items = append(items, a)
			}
		}
		writeJSON(w, http.StatusOK, paginate(r, items))
	}
}

func (g *Gateway) activityInScopeLocked(a models.Activity, entityType, id string) bool {
	if a.EntityType == entityType && a.EntityID == id {
		return true
	}
	switch entityType {
	case "project":
		if t := g.tasks[a.EntityID]; a.EntityType == "task" && t != nil {
			return t.ProjectID == id
		}
	case "workspace":
		projectID := a.EntityID
		if a.EntityType == "task" {
			t := g.tasks[a.EntityID]
			if t == nil {
				return false
			}
			projectID = t.ProjectID
		} else if a.EntityType != "project" {
			return false
		}
		p := g.projects[projectID]
		return p != nil && p.WorkspaceID == id
	}
	return false
}

// -- Documentation

func (g *Gateway) getDocs(entityType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		g.mu.Lock()
		defer g.mu.Unlock()
		d, ok := g.docs[entityType+":"+id]
		if !ok {
			d = models.Documentation{EntityType: entityType, EntityID: id, Content: json.RawMessage("null")}
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func (g *Gateway) saveDocs(entityType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Content json.RawMessage `json:"content"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		id := chi.URLParam(r, "id")
		g.mu.Lock()
		defer g.mu.Unlock()
		d := models.Documentation{EntityType: entityType, EntityID: id, Content: in.Content, UpdatedAt: g.nowLocked()}
		g.docs[entityType+":"+id] = d
		writeJSON(w, http.StatusOK, d)
	}
}

// -- Billing

var prices = map[models.Plan]map[models.Frequency]int64{
	models.PlanPro:        {models.FrequencyMonthly: 49900, models.FrequencyYearly: 499000},
	models.PlanEnterprise: {models.FrequencyMonthly: 199900, models.FrequencyYearly: 1999000},
}

func (g *Gateway) subscription(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	writeJSON(w, http.StatusOK, g.sub)
}

func (g *Gateway) createOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Plan      models.Plan      `json:"plan"`
		Frequency models.Frequency `json:"frequency"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	amount, ok := prices[in.Plan][in.Frequency]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown plan", "")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	o := models.Order{OrderID: "order_" + uuid.NewString()[:8], Amount: amount, Currency: "INR", KeyID: "rzp_test_key"}
	g.orders[o.OrderID] = o
	writeJSON(w, http.StatusCreated, o)
}

func (g *Gateway) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var v models.PaymentVerification
	if !decodeBody(w, r, &v) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.orders[v.OrderID]; !ok || v.Signature == "bad" {
		writeError(w, http.StatusBadRequest, "Payment verification failed", "")
		return
	}
	delete(g.orders, v.OrderID)
	renews := g.nowLocked().AddDate(0, 1, 0)
	if v.Frequency == models.FrequencyYearly {
		renews = renews.AddDate(0, 11, 0)
	}
	g.sub = models.Subscription{ID: g.sub.ID, Plan: v.Plan, Frequency: v.Frequency, Status: "active", RenewsAt: &renews}
	writeJSON(w, http.StatusOK, g.sub)
}
