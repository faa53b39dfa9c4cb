package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"research-collab-be/internal/dto"
	"research-collab-be/internal/entity"
	"research-collab-be/internal/repository/specification"
	"research-collab-be/pkg/collab"
	"research-collab-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessionRepo is an in-memory stand-in for the gorm repository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.CollabSession
	updates  int
	failNext bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]entity.CollabSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entity.CollabSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID] = *s
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *entity.CollabSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return assert.AnError
	}
	r.sessions[s.SessionID] = *s
	r.updates++
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.CollabSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.BySessionID); ok {
			if s, found := r.sessions[byID.SessionID]; found {
				copied := s
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.CollabSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.CollabSession
	for _, s := range r.sessions {
		keep := true
		for _, spec := range specs {
			switch f := spec.(type) {
			case specification.ByOwnerID:
				if s.OwnerID != f.OwnerID {
					keep = false
				}
			case specification.CreatedAfter:
				if s.CreatedAt.Before(f.Since) {
					keep = false
				}
			}
		}
		if keep {
			copied := s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

// fakeBroadcaster records every frame instead of touching sockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	frames []any
	direct []any
}

func (b *fakeBroadcaster) BroadcastToSession(_ string, message any, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, message)
}

func (b *fakeBroadcaster) SendToUser(_, _ string, message any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, message)
}

func (b *fakeBroadcaster) countActivity(activityType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, f := range b.frames {
		if m, ok := f.(dto.UserActivityMessage); ok && m.ActivityType == activityType {
			n++
		}
	}
	return n
}

// fakePublisher records activities handed to the async pipeline and
// lifecycle events put on the bus.
type fakePublisher struct {
	mu         sync.Mutex
	activities []collab.Activity
	events     []string
}

func (p *fakePublisher) PublishActivity(a collab.Activity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = append(p.activities, a)
}

func (p *fakePublisher) PublishEvent(eventType, sessionID string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *fakePublisher) countType(t collab.ActivityType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.activities {
		if a.ActivityType == t {
			n++
		}
	}
	return n
}

func (p *fakePublisher) countEvent(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type testHarness struct {
	svc   ICollabService
	repo  *fakeSessionRepo
	hub   *fakeBroadcaster
	pub   *fakePublisher
	locks *collab.LockTable
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	repo := newFakeSessionRepo()
	hub := &fakeBroadcaster{}
	pub := &fakePublisher{}
	locks := collab.NewLockTable(nil)
	svc := NewCollabService(CollabServiceDeps{
		Repo:      repo,
		Hub:       hub,
		Publisher: pub,
		Locks:     locks,
		Logger:    noopLogger{},
	})
	return &testHarness{svc: svc, repo: repo, hub: hub, pub: pub, locks: locks}
}

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

func createAndJoin(t *testing.T, h *testHarness, users ...collab.User) string {
	t.Helper()
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, &dto.CreateSessionRequest{
		Title:   "Climate research",
		OwnerID: users[0].UserID,
	})
	require.NoError(t, err)
	for _, u := range users {
		_, err := h.svc.JoinSession(ctx, res.SessionID, u)
		require.NoError(t, err)
	}
	return res.SessionID
}

func TestCreateSessionGeneratesID(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.CreateSession(context.Background(), &dto.CreateSessionRequest{
		Title:   "Climate research",
		OwnerID: "alice",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^collab_[0-9a-f]{12}$`, res.SessionID)
	assert.Equal(t, "Climate research", res.Title)
	assert.Equal(t, 1, h.pub.countEvent(events.TypeSessionCreated))
}

func TestListSessionsByOwnerAndAge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour)

	seed := []entity.CollabSession{
		{SessionID: "collab_aaaaaaaaaaaa", Title: "Old draft", OwnerID: "alice", CreatedAt: base},
		{SessionID: "collab_bbbbbbbbbbbb", Title: "Fresh draft", OwnerID: "alice", CreatedAt: base.Add(time.Hour)},
		{SessionID: "collab_cccccccccccc", Title: "Bob's draft", OwnerID: "bob", CreatedAt: base.Add(time.Hour)},
	}
	for i := range seed {
		require.NoError(t, h.repo.Create(ctx, &seed[i]))
	}

	all, err := h.svc.ListSessions(ctx, "alice", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "collab_bbbbbbbbbbbb", all[0].SessionID) // newest first
	assert.Equal(t, "collab_aaaaaaaaaaaa", all[1].SessionID)

	recent, err := h.svc.ListSessions(ctx, "alice", base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Fresh draft", recent[0].Title)
}

func TestJoinSessionSnapshotAndBroadcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.svc.CreateSession(ctx, &dto.CreateSessionRequest{
		Title:        "Climate research",
		OwnerID:      "alice",
		InitialState: map[string]any{"intro": "Draft intro"},
	})
	require.NoError(t, err)

	snapshot, err := h.svc.JoinSession(ctx, res.SessionID, collab.User{
		UserID: "alice", Username: "Alice", Role: collab.RoleOwner,
	})
	require.NoError(t, err)

	assert.Equal(t, "session_state", snapshot.Type)
	assert.Equal(t, "Draft intro", snapshot.CurrentState["intro"])
	require.Len(t, snapshot.Users, 1)
	assert.True(t, snapshot.Users[0].IsOnline)
	assert.Equal(t, "dashboard", snapshot.Users[0].CurrentLocation)
	assert.Equal(t, 1, h.hub.countActivity("join_session"))
}

func TestJoinUnknownSessionFails(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.JoinSession(context.Background(), "collab_missing00000", collab.User{
		UserID: "alice", Role: collab.RoleOwner,
	})
	assert.Error(t, err)
}

func TestEndToEndEditLockSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "b", Username: "B", Role: collab.RoleCollaborator},
	)

	editA := h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "Hello", Timestamp: time.Now(),
	})
	require.True(t, editA.Success)
	assert.NotEmpty(t, editA.EditID)

	holder, held := h.locks.Holder(sessionID, "intro")
	require.True(t, held)
	assert.Equal(t, "a", holder.UserID)

	editB := h.svc.HandleRealTimeEdit(ctx, sessionID, "b", "intro", collab.EditContent{
		Content: "Hi there", Timestamp: time.Now(),
	})
	assert.False(t, editB.Success)
	assert.Equal(t, "section_locked", editB.Error)

	sync := h.svc.SyncState(ctx, sessionID)
	require.True(t, sync.Success)
	assert.NotEmpty(t, sync.StateChecksum)
	assert.Equal(t, 1, h.pub.countEvent(events.TypeSyncCompleted))

	persisted, err := h.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "Hello", persisted.ResearchData["intro"])

	// Lock stays with the editor through sync.
	holder, held = h.locks.Holder(sessionID, "intro")
	require.True(t, held)
	assert.Equal(t, "a", holder.UserID)
}

func TestLeaveReleasesLocks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "b", Username: "B", Role: collab.RoleCollaborator},
	)

	require.True(t, h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "Hello", Timestamp: time.Now(),
	}).Success)

	require.True(t, h.svc.LeaveSession(ctx, sessionID, "a"))

	editB := h.svc.HandleRealTimeEdit(ctx, sessionID, "b", "intro", collab.EditContent{
		Content: "Hi there", Timestamp: time.Now(),
	})
	assert.True(t, editB.Success)
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
	)

	assert.True(t, h.svc.LeaveSession(ctx, sessionID, "a"))
	assert.False(t, h.svc.LeaveSession(ctx, sessionID, "a"))
	assert.Equal(t, 1, h.pub.countType(collab.ActivityLeaveSession))
}

func TestViewerCannotEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "v", Username: "V", Role: collab.RoleViewer},
	)

	res := h.svc.HandleRealTimeEdit(ctx, sessionID, "v", "intro", collab.EditContent{
		Content: "sneaky", Timestamp: time.Now(),
	})
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient_permissions", res.Error)
}

func TestNonMemberCannotEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
	)

	res := h.svc.HandleRealTimeEdit(ctx, sessionID, "ghost", "intro", collab.EditContent{
		Content: "boo", Timestamp: time.Now(),
	})
	assert.False(t, res.Success)
	assert.Equal(t, "user_not_member", res.Error)
}

func TestStagedEditDrainedAtSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
	)

	staged := h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "Staged draft", Timestamp: time.Now(), Staged: true,
	})
	require.True(t, staged.Success)
	assert.True(t, staged.Staged)
	assert.NotEmpty(t, staged.ChangeID)

	// Not yet visible in the persisted document.
	persisted, _ := h.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	_, has := persisted.ResearchData["intro"]
	assert.False(t, has)

	sync := h.svc.SyncState(ctx, sessionID)
	require.True(t, sync.Success)

	persisted, _ = h.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	assert.Equal(t, "Staged draft", persisted.ResearchData["intro"])
}

func TestSyncFailureRetainsState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
	)

	require.True(t, h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "Hello", Timestamp: time.Now(),
	}).Success)

	h.repo.failNext = true
	failed := h.svc.SyncState(ctx, sessionID)
	assert.False(t, failed.Success)

	// Retry succeeds with the same in-memory state.
	retry := h.svc.SyncState(ctx, sessionID)
	require.True(t, retry.Success)
	persisted, _ := h.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	assert.Equal(t, "Hello", persisted.ResearchData["intro"])

	analytics, err := h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, analytics.SessionInfo.LastSync)
}

func TestConcurrentEditConflictSurfaced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "b", Username: "B", Role: collab.RoleCollaborator},
	)

	staged := h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "version from a", Timestamp: time.Now(), Staged: true,
	})
	require.True(t, staged.Success)

	res := h.svc.HandleRealTimeEdit(ctx, sessionID, "b", "intro", collab.EditContent{
		Content: "version from b", Timestamp: time.Now(),
	})
	assert.False(t, res.Success)
	assert.True(t, res.Conflict)
	require.NotNil(t, res.ConflictData)
	assert.Equal(t, collab.StrategyMergeChanges, res.ConflictData.Strategy)
	assert.Equal(t, 1, h.pub.countEvent(events.TypeConflictDetected))

	analytics, err := h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, analytics.Conflicts, 1)
	assert.Equal(t, "concurrent_edit", analytics.Conflicts[0].ConflictType)
}

func TestResolveConflictAppliesWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "b", Username: "B", Role: collab.RoleCollaborator},
	)

	earlier := time.Now().Add(-time.Minute)
	later := time.Now()

	require.True(t, h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "old version", Timestamp: earlier, Staged: true,
	}).Success)
	res := h.svc.HandleRealTimeEdit(ctx, sessionID, "b", "intro", collab.EditContent{
		Content: "new version", Timestamp: later,
	})
	require.True(t, res.Conflict)

	analytics, err := h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, analytics.Conflicts, 1)
	conflictID := analytics.Conflicts[0].ConflictID

	resolved, err := h.svc.ResolveConflict(ctx, sessionID, conflictID, collab.StrategyTimestampPriority)
	require.NoError(t, err)
	assert.True(t, resolved.Success)
	assert.True(t, resolved.Applied)
	assert.Equal(t, "b", resolved.Resolution.WinningUser)

	sync := h.svc.SyncState(ctx, sessionID)
	require.True(t, sync.Success)
	persisted, _ := h.repo.FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	assert.Equal(t, "new version", persisted.ResearchData["intro"])

	// Resolved conflicts drop out of analytics.
	analytics, err = h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, analytics.Conflicts)
}

func TestAddCommentBroadcastsAndCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
	)

	res := h.svc.AddComment(ctx, sessionID, "a", "intro", dto.CommentData{
		Content: "Needs a source here", Tags: []string{"citation"},
	})
	require.True(t, res.Success)
	assert.Regexp(t, `^comment_[0-9a-f]{8}$`, res.CommentID)
	assert.Equal(t, 1, h.hub.countActivity("add_comment"))

	analytics, err := h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.Metrics.CommentCount)
}

func TestAnalyticsAggregation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sessionID := createAndJoin(t, h,
		collab.User{UserID: "a", Username: "A", Role: collab.RoleOwner},
		collab.User{UserID: "b", Username: "B", Role: collab.RoleCollaborator},
	)

	require.True(t, h.svc.HandleRealTimeEdit(ctx, sessionID, "a", "intro", collab.EditContent{
		Content: "Hello", Timestamp: time.Now(),
	}).Success)

	analytics, err := h.svc.GetAnalytics(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.Metrics.TotalUsers)
	assert.Equal(t, 2, analytics.Metrics.OnlineUsers)
	assert.Equal(t, 1, analytics.Metrics.EditCount)
	// join x2 + edit
	assert.Equal(t, 3, analytics.Metrics.TotalActivities)
	assert.NotEmpty(t, analytics.RecentActivities)
}
