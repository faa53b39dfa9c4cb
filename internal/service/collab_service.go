package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"research-collab-be/internal/dto"
	"research-collab-be/internal/entity"
	"research-collab-be/internal/pkg/logger"
	"research-collab-be/internal/repository/contract"
	"research-collab-be/internal/repository/memory"
	"research-collab-be/internal/repository/specification"
	"research-collab-be/pkg/collab"
	"research-collab-be/pkg/events"
	"research-collab-be/pkg/research"

	"github.com/google/uuid"
)

// SessionBroadcaster defines how frames reach the session's live sockets.
// Typically implemented by the WebSocket Hub.
type SessionBroadcaster interface {
	BroadcastToSession(sessionID string, message any, excludeUserID string)
	SendToUser(sessionID, userID string, message any)
}

// ActivityPublisher hands finished activities to the async persistence
// pipeline and session lifecycle events to the bus. Failures there must
// never fail the triggering operation.
type ActivityPublisher interface {
	PublishActivity(activity collab.Activity)
	PublishEvent(eventType, sessionID string, data map[string]any)
}

// AccessPolicy decides whether a user may enter a session at all. Role-based
// operation gating stays in the service; admission is business policy owned
// by the caller.
type AccessPolicy interface {
	CanJoin(ctx context.Context, session *entity.CollabSession, userID string, role collab.Role) bool
}

// AllowAllPolicy admits everyone. The upstream system never enforced
// per-session admission, so permissive stays the default until an integrator
// supplies a real policy.
type AllowAllPolicy struct{}

func (AllowAllPolicy) CanJoin(_ context.Context, _ *entity.CollabSession, _ string, _ collab.Role) bool {
	return true
}

type ICollabService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	ListSessions(ctx context.Context, ownerID string, since time.Time) ([]dto.SessionInfo, error)
	JoinSession(ctx context.Context, sessionID string, user collab.User) (*dto.SessionStateMessage, error)
	LeaveSession(ctx context.Context, sessionID, userID string) bool
	HandleRealTimeEdit(ctx context.Context, sessionID, userID, sectionID string, edit collab.EditContent) dto.EditResult
	RequestResearch(ctx context.Context, sessionID, userID, sectionID, query string) dto.EditResult
	AddComment(ctx context.Context, sessionID, userID, sectionID string, data dto.CommentData) dto.CommentResult
	SyncState(ctx context.Context, sessionID string) dto.SyncResult
	ResolveConflict(ctx context.Context, sessionID, conflictID string, strategy collab.ResolutionStrategy) (*dto.ResolveConflictResult, error)
	GetAnalytics(ctx context.Context, sessionID string) (*dto.AnalyticsResponse, error)
}

// sessionRuntime is the live in-memory state of one resident session. All
// fields are guarded by mu; I/O (broadcast, persistence, publishing) happens
// only after the state transition completed and mu was released.
type sessionRuntime struct {
	mu sync.Mutex

	record   *entity.CollabSession
	users    map[string]*collab.User
	sections map[string]collab.SectionState
	comments []dto.Comment
	pending  []collab.PendingEdit

	conflicts map[string]collab.Conflict
	activity  *collab.ActivityLog

	editCount    int
	commentCount int
}

type collabService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRuntime

	repo      contract.CollabSessionRepository
	snapshots *memory.SnapshotCache
	hub       SessionBroadcaster
	publisher ActivityPublisher
	policy    AccessPolicy
	resolver  *collab.Resolver
	locks     *collab.LockTable
	research  research.Provider
	logger    logger.ILogger

	activityCap      int
	maxCollaborators int
	now              func() time.Time
}

type CollabServiceDeps struct {
	Repo             contract.CollabSessionRepository
	Snapshots        *memory.SnapshotCache
	Hub              SessionBroadcaster
	Publisher        ActivityPublisher
	Policy           AccessPolicy
	Resolver         *collab.Resolver
	Locks            *collab.LockTable
	Research         research.Provider
	Logger           logger.ILogger
	ActivityCap      int
	MaxCollaborators int
}

func NewCollabService(deps CollabServiceDeps) ICollabService {
	if deps.Policy == nil {
		deps.Policy = AllowAllPolicy{}
	}
	if deps.Resolver == nil {
		deps.Resolver = collab.NewResolver(nil)
	}
	if deps.Locks == nil {
		deps.Locks = collab.NewLockTable(nil)
	}
	if deps.ActivityCap <= 0 {
		deps.ActivityCap = 100
	}
	return &collabService{
		sessions:         make(map[string]*sessionRuntime),
		repo:             deps.Repo,
		snapshots:        deps.Snapshots,
		hub:              deps.Hub,
		publisher:        deps.Publisher,
		policy:           deps.Policy,
		resolver:         deps.Resolver,
		locks:            deps.Locks,
		research:         deps.Research,
		logger:           deps.Logger,
		activityCap:      deps.ActivityCap,
		maxCollaborators: deps.MaxCollaborators,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *collabService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	now := s.now()
	record := &entity.CollabSession{
		SessionID:    collab.NewSessionID(),
		Title:        req.Title,
		Description:  req.Description,
		OwnerID:      req.OwnerID,
		ResearchData: req.InitialState,
		Permissions: entity.SessionPermissions{
			AllowPublicView:  true,
			MaxCollaborators: s.maxCollaborators,
		},
		Settings: entity.SessionSettings{
			AutoSaveInterval:      30,
			ConflictResolution:    "merge_changes",
			ActivityRetentionDays: 30,
		},
		CreatedAt: now,
	}
	if record.ResearchData == nil {
		record.ResearchData = map[string]any{}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	rt := s.newRuntime(record)
	s.mu.Lock()
	s.sessions[record.SessionID] = rt
	s.mu.Unlock()

	if s.snapshots != nil {
		s.snapshots.Save(record)
	}

	s.logger.Info("CollabService", "Session created", map[string]interface{}{
		"session_id": record.SessionID,
		"owner_id":   record.OwnerID,
	})
	s.publishEvent(events.TypeSessionCreated, record.SessionID, map[string]any{
		"owner_id": record.OwnerID,
		"title":    record.Title,
	})
	return &dto.CreateSessionResponse{
		SessionID: record.SessionID,
		Title:     record.Title,
		CreatedAt: record.CreatedAt,
	}, nil
}

// ListSessions returns the sessions owned by a user, newest first. A
// non-zero since restricts the listing to sessions created at or after it.
func (s *collabService) ListSessions(ctx context.Context, ownerID string, since time.Time) ([]dto.SessionInfo, error) {
	specs := []specification.Specification{
		specification.ByOwnerID{OwnerID: ownerID},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if !since.IsZero() {
		specs = append(specs, specification.CreatedAfter{Since: since})
	}

	records, err := s.repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	infos := make([]dto.SessionInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, dto.SessionInfo{
			SessionID: r.SessionID,
			Title:     r.Title,
			CreatedAt: r.CreatedAt,
			LastSync:  r.LastSyncAt,
		})
	}
	return infos, nil
}

func (s *collabService) JoinSession(ctx context.Context, sessionID string, user collab.User) (*dto.SessionStateMessage, error) {
	rt, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanJoin(ctx, rt.record, user.UserID, user.Role) {
		return nil, fmt.Errorf("access denied to session %s", sessionID)
	}

	now := s.now()
	user.IsOnline = true
	user.LastActivity = now
	if user.CurrentLocation == "" {
		user.CurrentLocation = "dashboard"
	}

	rt.mu.Lock()
	if _, already := rt.users[user.UserID]; !already {
		maxMembers := rt.record.Permissions.MaxCollaborators
		if maxMembers > 0 && len(rt.users) >= maxMembers {
			rt.mu.Unlock()
			return nil, fmt.Errorf("session %s is full", sessionID)
		}
	}
	u := user
	rt.users[user.UserID] = &u
	activity := rt.appendActivity(now, user.UserID, user.Username, collab.ActivityJoinSession, map[string]any{
		"role": string(user.Role),
	})
	snapshot := rt.snapshotLocked(now)
	rt.mu.Unlock()

	s.hub.BroadcastToSession(sessionID, dto.UserActivityMessage{
		Type:         "user_activity",
		SessionID:    sessionID,
		UserID:       user.UserID,
		ActivityType: string(collab.ActivityJoinSession),
		Content:      map[string]any{"username": user.Username, "role": string(user.Role)},
		Timestamp:    now,
	}, user.UserID)
	s.publishActivity(activity)

	return snapshot, nil
}

func (s *collabService) LeaveSession(ctx context.Context, sessionID, userID string) bool {
	rt := s.resident(sessionID)
	if rt == nil {
		return false
	}

	rt.mu.Lock()
	user, ok := rt.users[userID]
	if !ok {
		rt.mu.Unlock()
		return false
	}
	username := user.Username
	delete(rt.users, userID)
	released := s.locks.ReleaseAllForUser(sessionID, userID)
	now := s.now()
	activity := rt.appendActivity(now, userID, username, collab.ActivityLeaveSession, map[string]any{
		"released_sections": released,
	})
	rt.mu.Unlock()

	s.hub.BroadcastToSession(sessionID, dto.UserActivityMessage{
		Type:         "user_activity",
		SessionID:    sessionID,
		UserID:       userID,
		ActivityType: string(collab.ActivityLeaveSession),
		Content:      map[string]any{"username": username},
		Timestamp:    now,
	}, userID)
	s.publishActivity(activity)
	return true
}

// HandleRealTimeEdit is the concurrency-critical path. Permission, conflict
// and lock checks plus the state mutation run under the session mutex with no
// intervening I/O; broadcast and publishing happen afterwards.
func (s *collabService) HandleRealTimeEdit(ctx context.Context, sessionID, userID, sectionID string, edit collab.EditContent) dto.EditResult {
	rt := s.resident(sessionID)
	if rt == nil {
		return dto.EditResult{Success: false, Error: "session_not_found"}
	}

	now := s.now()
	if edit.Timestamp.IsZero() {
		edit.Timestamp = now
	}

	rt.mu.Lock()

	user, ok := rt.users[userID]
	if !ok {
		rt.mu.Unlock()
		return dto.EditResult{Success: false, Error: "user_not_member"}
	}
	if !user.Role.CanEdit() {
		rt.mu.Unlock()
		return dto.EditResult{Success: false, Error: "insufficient_permissions"}
	}

	section := rt.sections[sectionID]
	if conflict := s.resolver.DetectConflict(sessionID, sectionID, userID, edit, section, rt.pending); conflict != nil {
		conflict.User1Role = rt.roleOf(conflict.User1ID)
		conflict.User2Role = user.Role
		rt.conflicts[conflict.ConflictID] = *conflict
		rt.mu.Unlock()

		resolution := s.resolver.Resolve(*conflict, "")
		s.logger.Info("CollabService", "Edit conflict detected", map[string]interface{}{
			"session_id":  sessionID,
			"section_id":  sectionID,
			"conflict_id": conflict.ConflictID,
			"type":        string(conflict.Type),
		})
		s.publishEvent(events.TypeConflictDetected, sessionID, map[string]any{
			"conflict_id": conflict.ConflictID,
			"section_id":  sectionID,
			"type":        string(conflict.Type),
		})
		return dto.EditResult{
			Success:      false,
			Conflict:     true,
			ConflictData: &resolution,
		}
	}

	if !s.locks.Acquire(sessionID, sectionID, userID) {
		holder, _ := s.locks.Holder(sessionID, sectionID)
		rt.mu.Unlock()
		return dto.EditResult{
			Success: false,
			Error:   "section_locked",
			ConflictData: &collab.Resolution{
				Strategy:    collab.StrategyUserChoice,
				Timestamp:   now,
				WinningUser: holder.UserID,
				Reason:      "section_locked",
			},
		}
	}

	if edit.Staged {
		changeID := uuid.NewString()
		rt.pending = append(rt.pending, collab.PendingEdit{
			ChangeID:  changeID,
			SectionID: sectionID,
			UserID:    userID,
			Edit:      edit,
			StagedAt:  now,
		})
		rt.mu.Unlock()
		return dto.EditResult{Success: true, Staged: true, ChangeID: changeID}
	}

	rt.applySectionLocked(sectionID, userID, edit, now)
	user.LastActivity = now
	user.CurrentLocation = sectionID
	rt.editCount++
	editID := uuid.NewString()
	activity := rt.appendActivity(now, userID, user.Username, collab.ActivityEditContent, map[string]any{
		"section_id": sectionID,
		"edit_id":    editID,
	})
	rt.mu.Unlock()

	// Everyone, including the editor, receives the canonical post-edit state.
	s.hub.BroadcastToSession(sessionID, dto.UserActivityMessage{
		Type:         "user_activity",
		SessionID:    sessionID,
		UserID:       userID,
		ActivityType: string(collab.ActivityEditContent),
		Content: map[string]any{
			"section_id": sectionID,
			"edit_id":    editID,
			"content":    edit.Content,
		},
		Timestamp: now,
	}, "")
	s.publishActivity(activity)

	return dto.EditResult{Success: true, EditID: editID}
}

// RequestResearch asks the external pipeline to complete a query and appends
// the result to the section as a regular edit, so locking and conflict
// detection apply to agent output the same way they do to humans.
func (s *collabService) RequestResearch(ctx context.Context, sessionID, userID, sectionID, query string) dto.EditResult {
	if s.research == nil {
		return dto.EditResult{Success: false, Error: "research_unavailable"}
	}

	result, err := s.research.Complete(ctx, query)
	if err != nil {
		s.logger.Error("CollabService", "Research completion failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return dto.EditResult{Success: false, Error: err.Error()}
	}

	rt := s.resident(sessionID)
	if rt == nil {
		return dto.EditResult{Success: false, Error: "session_not_found"}
	}
	rt.mu.Lock()
	existing := rt.sections[sectionID].Content
	rt.mu.Unlock()

	content := result.Content
	if existing != "" {
		content = existing + "\n\n" + result.Content
	}

	edit := collab.EditContent{Type: "add_research", Content: content, Timestamp: s.now()}
	res := s.HandleRealTimeEdit(ctx, sessionID, userID, sectionID, edit)
	if res.Success {
		rt.mu.Lock()
		user, ok := rt.users[userID]
		username := ""
		if ok {
			username = user.Username
		}
		activity := rt.appendActivity(s.now(), userID, username, collab.ActivityAddResearch, map[string]any{
			"section_id": sectionID,
			"query":      query,
			"sources":    len(result.Sources),
			"confidence": result.Confidence,
		})
		rt.mu.Unlock()
		s.publishActivity(activity)
	}
	return res
}

func (s *collabService) AddComment(ctx context.Context, sessionID, userID, sectionID string, data dto.CommentData) dto.CommentResult {
	rt := s.resident(sessionID)
	if rt == nil {
		return dto.CommentResult{Success: false, Error: "session_not_found"}
	}

	now := s.now()

	rt.mu.Lock()
	user, ok := rt.users[userID]
	if !ok {
		rt.mu.Unlock()
		return dto.CommentResult{Success: false, Error: "user_not_member"}
	}

	comment := dto.Comment{
		CommentID: collab.NewCommentID(),
		UserID:    userID,
		Username:  user.Username,
		Content:   data.Content,
		SectionID: sectionID,
		Timestamp: now,
		Replies:   []dto.Comment{},
		Tags:      data.Tags,
	}
	rt.comments = append(rt.comments, comment)
	rt.commentCount++
	user.LastActivity = now
	activity := rt.appendActivity(now, userID, user.Username, collab.ActivityAddComment, map[string]any{
		"section_id": sectionID,
		"comment_id": comment.CommentID,
	})
	rt.mu.Unlock()

	s.hub.BroadcastToSession(sessionID, dto.UserActivityMessage{
		Type:         "user_activity",
		SessionID:    sessionID,
		UserID:       userID,
		ActivityType: string(collab.ActivityAddComment),
		Content: map[string]any{
			"section_id": sectionID,
			"comment":    comment,
		},
		Timestamp: now,
	}, "")
	s.publishActivity(activity)

	return dto.CommentResult{Success: true, CommentID: comment.CommentID, Comment: &comment}
}

// SyncState drains staged changes in insertion order, persists the full
// document, and advances last_sync only when persistence succeeded.
func (s *collabService) SyncState(ctx context.Context, sessionID string) dto.SyncResult {
	rt := s.resident(sessionID)
	if rt == nil {
		return dto.SyncResult{Success: false, Error: "session_not_found"}
	}

	now := s.now()

	rt.mu.Lock()
	for _, p := range rt.pending {
		rt.applySectionLocked(p.SectionID, p.UserID, p.Edit, now)
	}
	rt.pending = rt.pending[:0]

	record := rt.record
	record.ResearchData = rt.documentLocked()
	snapshot := *record
	rt.mu.Unlock()

	checksum := stateChecksum(snapshot.ResearchData)

	if err := s.repo.Update(ctx, &snapshot); err != nil {
		s.logger.Error("CollabService", "Sync persistence failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return dto.SyncResult{Success: false, Error: err.Error()}
	}

	rt.mu.Lock()
	rt.record.LastSyncAt = &now
	rt.mu.Unlock()

	if s.snapshots != nil {
		s.snapshots.Save(&snapshot)
	}

	s.hub.BroadcastToSession(sessionID, dto.NotificationMessage{
		Type:      "user_notification",
		SessionID: sessionID,
		Event:     "sync_complete",
		Data: map[string]any{
			"state_checksum": checksum,
			"sync_timestamp": now,
		},
		Timestamp: now,
	}, "")
	s.publishEvent(events.TypeSyncCompleted, sessionID, map[string]any{
		"state_checksum": checksum,
	})

	return dto.SyncResult{Success: true, SyncTimestamp: now, StateChecksum: checksum}
}

func (s *collabService) ResolveConflict(ctx context.Context, sessionID, conflictID string, strategy collab.ResolutionStrategy) (*dto.ResolveConflictResult, error) {
	rt := s.resident(sessionID)
	if rt == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	rt.mu.Lock()
	conflict, ok := rt.conflicts[conflictID]
	if !ok {
		rt.mu.Unlock()
		return nil, fmt.Errorf("conflict %s not found", conflictID)
	}
	rt.mu.Unlock()

	resolution := s.resolver.Resolve(conflict, strategy)

	applied := false
	if resolution.Success {
		now := s.now()
		var content collab.EditContent
		var editor string
		switch {
		case resolution.MergedContent != nil:
			content = collab.EditContent{Content: *resolution.MergedContent, Timestamp: now}
			editor = conflict.User2ID
		case resolution.ResolvedContent != nil:
			content = *resolution.ResolvedContent
			editor = resolution.WinningUser
		}

		rt.mu.Lock()
		rt.applySectionLocked(conflict.SectionID, editor, content, now)
		// Staged edits to this section were superseded by the resolution;
		// draining them at sync would overwrite the agreed content.
		kept := rt.pending[:0]
		for _, p := range rt.pending {
			if p.SectionID != conflict.SectionID {
				kept = append(kept, p)
			}
		}
		rt.pending = kept
		conflict.Resolved = true
		rt.conflicts[conflictID] = conflict
		rt.mu.Unlock()
		applied = true

		s.hub.BroadcastToSession(sessionID, dto.UserActivityMessage{
			Type:         "user_activity",
			SessionID:    sessionID,
			UserID:       editor,
			ActivityType: string(collab.ActivityEditContent),
			Content: map[string]any{
				"section_id":  conflict.SectionID,
				"conflict_id": conflictID,
				"resolution":  string(resolution.Strategy),
			},
			Timestamp: now,
		}, "")
	}

	return &dto.ResolveConflictResult{Success: resolution.Success, Resolution: &resolution, Applied: applied}, nil
}

func (s *collabService) GetAnalytics(ctx context.Context, sessionID string) (*dto.AnalyticsResponse, error) {
	rt := s.resident(sessionID)
	if rt == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	users := make([]collab.User, 0, len(rt.users))
	online := 0
	for _, u := range rt.users {
		users = append(users, *u)
		if u.IsOnline {
			online++
		}
	}

	conflicts := make([]dto.ConflictSummary, 0)
	for _, c := range rt.conflicts {
		if c.Resolved {
			continue
		}
		conflicts = append(conflicts, dto.ConflictSummary{
			ConflictID:   c.ConflictID,
			SectionID:    c.SectionID,
			Users:        [2]string{c.User1ID, c.User2ID},
			ConflictType: string(c.Type),
			Timestamp:    c.Timestamp,
			Resolved:     c.Resolved,
		})
	}

	return &dto.AnalyticsResponse{
		SessionInfo: dto.SessionInfo{
			SessionID: rt.record.SessionID,
			Title:     rt.record.Title,
			CreatedAt: rt.record.CreatedAt,
			LastSync:  rt.record.LastSyncAt,
		},
		Metrics: dto.CollaborationMetrics{
			TotalUsers:      len(rt.users),
			OnlineUsers:     online,
			TotalActivities: rt.activity.Len(),
			EditCount:       rt.editCount,
			CommentCount:    rt.commentCount,
		},
		ActiveUsers:      users,
		RecentActivities: rt.activity.Recent(20),
		Conflicts:        conflicts,
	}, nil
}

// --- internals ---

func (s *collabService) newRuntime(record *entity.CollabSession) *sessionRuntime {
	rt := &sessionRuntime{
		record:    record,
		users:     make(map[string]*collab.User),
		sections:  make(map[string]collab.SectionState),
		comments:  []dto.Comment{},
		conflicts: make(map[string]collab.Conflict),
		activity:  collab.NewActivityLog(s.activityCap),
	}
	for sectionID, v := range record.ResearchData {
		content, _ := v.(string)
		if content == "" {
			raw, _ := json.Marshal(v)
			content = string(raw)
		}
		rt.sections[sectionID] = collab.SectionState{Content: content, Version: 1, UpdatedAt: record.CreatedAt}
	}
	return rt
}

func (s *collabService) resident(sessionID string) *sessionRuntime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// loadSession returns the resident runtime, falling back to the snapshot
// cache and then the database for sessions not yet in memory.
func (s *collabService) loadSession(ctx context.Context, sessionID string) (*sessionRuntime, error) {
	if rt := s.resident(sessionID); rt != nil {
		return rt, nil
	}

	var record *entity.CollabSession
	if s.snapshots != nil {
		if cached, found := s.snapshots.Get(sessionID); found {
			record = cached
		}
	}
	if record == nil {
		found, err := s.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", sessionID, err)
		}
		if found == nil {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		record = found
	}

	rt := s.newRuntime(record)
	s.mu.Lock()
	if existing, ok := s.sessions[sessionID]; ok {
		rt = existing
	} else {
		s.sessions[sessionID] = rt
	}
	s.mu.Unlock()
	return rt, nil
}

func (s *collabService) publishActivity(activity collab.Activity) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishActivity(activity)
}

func (s *collabService) publishEvent(eventType, sessionID string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishEvent(eventType, sessionID, data)
}

func (rt *sessionRuntime) roleOf(userID string) collab.Role {
	if u, ok := rt.users[userID]; ok {
		return u.Role
	}
	return ""
}

func (rt *sessionRuntime) applySectionLocked(sectionID, userID string, edit collab.EditContent, now time.Time) {
	prev := rt.sections[sectionID]
	rt.sections[sectionID] = collab.SectionState{
		Content:   edit.Content,
		Version:   prev.Version + 1,
		UpdatedAt: now,
		UpdatedBy: userID,
	}
}

func (rt *sessionRuntime) appendActivity(now time.Time, userID, username string, t collab.ActivityType, content map[string]any) collab.Activity {
	activity := collab.Activity{
		ActivityID:   uuid.NewString(),
		UserID:       userID,
		Username:     username,
		ActivityType: t,
		Content:      content,
		Timestamp:    now,
		SessionID:    rt.record.SessionID,
	}
	rt.activity.Append(activity)
	return activity
}

// documentLocked flattens the live sections and comments into the persisted
// document shape. Caller holds rt.mu.
func (rt *sessionRuntime) documentLocked() map[string]any {
	doc := make(map[string]any, len(rt.sections)+1)
	for id, section := range rt.sections {
		doc[id] = section.Content
	}
	commentsByID := make(map[string]any, len(rt.comments))
	for _, c := range rt.comments {
		commentsByID[c.CommentID] = c
	}
	doc["comments"] = commentsByID
	return doc
}

func (rt *sessionRuntime) snapshotLocked(now time.Time) *dto.SessionStateMessage {
	users := make([]collab.User, 0, len(rt.users))
	for _, u := range rt.users {
		users = append(users, *u)
	}
	return &dto.SessionStateMessage{
		Type:         "session_state",
		SessionID:    rt.record.SessionID,
		CurrentState: rt.documentLocked(),
		Users:        users,
		Timestamp:    now,
	}
}

// stateChecksum hashes the canonical JSON form of the document so clients
// can detect staleness after sync_complete.
func stateChecksum(state map[string]any) string {
	data, _ := json.Marshal(state)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
