// Package store owns the three record collections. All reads hand out value
// copies and all mutations go through store methods, so no caller ever holds
// a live record across a persistence boundary. Persistence is whole-collection
// overwrite through the storage.KV blob interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/storage"

	"github.com/gofrs/uuid"
)

type Store struct {
	mu sync.RWMutex
	kv storage.KV

	users        []models.User
	tasks        []models.Task
	editRequests []models.EditRequest
	sessions     []models.Session
}

func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// LoadAll reads every collection from persistence. Missing keys load as empty
// collections; a first run starts from nothing.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loadCollection(ctx, s.kv, storage.KeyUsers, &s.users); err != nil {
		return err
	}
	if err := loadCollection(ctx, s.kv, storage.KeyTasks, &s.tasks); err != nil {
		return err
	}
	if err := loadCollection(ctx, s.kv, storage.KeyEditRequests, &s.editRequests); err != nil {
		return err
	}
	return loadCollection(ctx, s.kv, storage.KeySessions, &s.sessions)
}

// PersistAll writes every collection back, one key at a time.
func (s *Store) PersistAll(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx, storage.KeyUsers, storage.KeyTasks, storage.KeyEditRequests, storage.KeySessions)
}

func (s *Store) Health(ctx context.Context) error {
	return s.kv.Health(ctx)
}

func loadCollection[T any](ctx context.Context, kv storage.KV, key string, dest *[]T) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			*dest = nil
			return nil
		}
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// persistLocked serializes and writes the named collections. Callers hold at
// least a read lock.
func (s *Store) persistLocked(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		var value any
		switch key {
		case storage.KeyUsers:
			value = s.users
		case storage.KeyTasks:
			value = s.tasks
		case storage.KeyEditRequests:
			value = s.editRequests
		case storage.KeySessions:
			value = s.sessions
		default:
			return fmt.Errorf("unknown collection key %s", key)
		}
		if value == nil {
			value = []struct{}{}
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if err := s.kv.Put(ctx, key, data); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}
	return nil
}

// nextID returns max(id)+1, or 1 for an empty collection. Deleting the
// highest-id record makes its id reusable; that contract is deliberate.
func nextID[T any](records []T, id func(T) int64) int64 {
	var max int64
	for _, r := range records {
		if v := id(r); v > max {
			max = v
		}
	}
	return max + 1
}

// --- users ---

func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

func (s *Store) UserByID(id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
}

func (s *Store) UserByUsername(username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, models.ErrNotFound)
}

func (s *Store) UserByEmail(email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", email, models.ErrNotFound)
}

// AddUser assigns the next id, enforces username/email uniqueness and
// persists the collection. The stored record is returned.
func (s *Store) AddUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return models.User{}, fmt.Errorf("username already exists: %w", models.ErrConflict)
		}
		if existing.Email == user.Email {
			return models.User{}, fmt.Errorf("email already exists: %w", models.ErrConflict)
		}
	}

	user.ID = nextID(s.users, func(u models.User) int64 { return u.ID })
	s.users = append(s.users, user)

	if err := s.persistLocked(ctx, storage.KeyUsers); err != nil {
		s.users = s.users[:len(s.users)-1]
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Username == user.Username {
			return fmt.Errorf("username already exists: %w", models.ErrConflict)
		}
		if existing.Email == user.Email {
			return fmt.Errorf("email already exists: %w", models.ErrConflict)
		}
	}

	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = user
			return s.persistLocked(ctx, storage.KeyUsers)
		}
	}
	return fmt.Errorf("user %d: %w", user.ID, models.ErrNotFound)
}

// DeleteUserCascade removes the user together with every task they own or
// are assigned to, the edit-requests referencing those tasks, their own
// edit-requests, and their sessions. One persist pass covers all
// collections so the in-memory and persisted views never diverge.
func (s *Store) DeleteUserCascade(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	users := s.users[:0:0]
	for _, u := range s.users {
		if u.ID == id {
			found = true
			continue
		}
		users = append(users, u)
	}
	if !found {
		return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}

	removedTasks := map[int64]struct{}{}
	tasks := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.OwnerID == id || t.AssigneeID == id {
			removedTasks[t.ID] = struct{}{}
			continue
		}
		tasks = append(tasks, t)
	}

	requests := s.editRequests[:0:0]
	for _, r := range s.editRequests {
		if r.RequesterID == id || r.AssignedBy == id {
			continue
		}
		if _, gone := removedTasks[r.TaskID]; gone {
			continue
		}
		requests = append(requests, r)
	}

	sessions := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if sess.UserID == id {
			continue
		}
		sessions = append(sessions, sess)
	}

	s.users, s.tasks, s.editRequests, s.sessions = users, tasks, requests, sessions
	return s.persistLocked(ctx, storage.KeyUsers, storage.KeyTasks, storage.KeyEditRequests, storage.KeySessions)
}

// --- tasks ---

func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) TaskByID(id int64) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %d: %w", id, models.ErrNotFound)
}

func (s *Store) AddTask(ctx context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = nextID(s.tasks, func(t models.Task) int64 { return t.ID })
	s.tasks = append(s.tasks, task)

	if err := s.persistLocked(ctx, storage.KeyTasks); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return models.Task{}, err
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return s.persistLocked(ctx, storage.KeyTasks)
		}
	}
	return fmt.Errorf("task %d: %w", task.ID, models.ErrNotFound)
}

// DeleteTask removes the task only. Edit-requests that reference it are left
// in place and render as "Unknown Task"; deletion is tombstone-free.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return s.persistLocked(ctx, storage.KeyTasks)
		}
	}
	return fmt.Errorf("task %d: %w", id, models.ErrNotFound)
}

// --- edit requests ---

func (s *Store) EditRequests() []models.EditRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.EditRequest, len(s.editRequests))
	copy(out, s.editRequests)
	return out
}

func (s *Store) EditRequestByID(id int64) (models.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.editRequests {
		if r.ID == id {
			return r, nil
		}
	}
	return models.EditRequest{}, fmt.Errorf("edit request %d: %w", id, models.ErrNotFound)
}

// HasPendingEditRequest reports whether (task, requester) already has a
// pending request. At most one may exist at a time.
func (s *Store) HasPendingEditRequest(taskID, requesterID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.editRequests {
		if r.TaskID == taskID && r.RequesterID == requesterID && r.Status == models.EditRequestPending {
			return true
		}
	}
	return false
}

// AddEditRequest inserts a new request. Pending-uniqueness per
// (task, requester) is enforced here, under the same lock as the insert, so
// concurrent submissions cannot both slip past the check.
func (s *Store) AddEditRequest(ctx context.Context, request models.EditRequest) (models.EditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.editRequests {
		if r.TaskID == request.TaskID && r.RequesterID == request.RequesterID && r.Status == models.EditRequestPending {
			return models.EditRequest{}, fmt.Errorf("a pending edit request already exists for this task: %w", models.ErrConflict)
		}
	}

	request.ID = nextID(s.editRequests, func(r models.EditRequest) int64 { return r.ID })
	s.editRequests = append(s.editRequests, request)

	if err := s.persistLocked(ctx, storage.KeyEditRequests); err != nil {
		s.editRequests = s.editRequests[:len(s.editRequests)-1]
		return models.EditRequest{}, err
	}
	return request, nil
}

// UpdateEditRequest replaces a request record. The stored record must still
// be pending; approved and rejected are terminal, and the first resolution
// to land wins.
func (s *Store) UpdateEditRequest(ctx context.Context, request models.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.editRequests {
		if s.editRequests[i].ID == request.ID {
			if s.editRequests[i].Status != models.EditRequestPending {
				return fmt.Errorf("request is already %s: %w", s.editRequests[i].Status, models.ErrConflict)
			}
			s.editRequests[i] = request
			return s.persistLocked(ctx, storage.KeyEditRequests)
		}
	}
	return fmt.Errorf("edit request %d: %w", request.ID, models.ErrNotFound)
}

// ResolveEditRequest applies the terminal request state and, for approvals,
// the task unlock in one locked section with a single persist pass over both
// collections. Neither change is observable without the other. The stored
// record must still be pending; racing resolutions lose with Conflict.
func (s *Store) ResolveEditRequest(ctx context.Context, request models.EditRequest, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestIdx := -1
	for i := range s.editRequests {
		if s.editRequests[i].ID == request.ID {
			requestIdx = i
			break
		}
	}
	if requestIdx < 0 {
		return fmt.Errorf("edit request %d: %w", request.ID, models.ErrNotFound)
	}
	if s.editRequests[requestIdx].Status != models.EditRequestPending {
		return fmt.Errorf("request is already %s: %w", s.editRequests[requestIdx].Status, models.ErrConflict)
	}

	taskIdx := -1
	if task != nil {
		for i := range s.tasks {
			if s.tasks[i].ID == task.ID {
				taskIdx = i
				break
			}
		}
		if taskIdx < 0 {
			return fmt.Errorf("task %d: %w", task.ID, models.ErrNotFound)
		}
	}

	s.editRequests[requestIdx] = request
	if taskIdx >= 0 {
		s.tasks[taskIdx] = *task
		return s.persistLocked(ctx, storage.KeyEditRequests, storage.KeyTasks)
	}
	return s.persistLocked(ctx, storage.KeyEditRequests)
}

// --- sessions ---

func (s *Store) AddSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return s.persistLocked(ctx, storage.KeySessions)
}

func (s *Store) SessionByRefreshToken(token uuid.UUID) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.RefreshToken == token {
			return sess, nil
		}
	}
	return models.Session{}, fmt.Errorf("session: %w", models.ErrNotFound)
}

func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return s.persistLocked(ctx, storage.KeySessions)
		}
	}
	return fmt.Errorf("session: %w", models.ErrNotFound)
}

// PruneSessions drops expired sessions and, when userID is non-zero, every
// session belonging to that user.
func (s *Store) PruneSessions(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if sess.Expired(time.Now()) {
			continue
		}
		if userID != 0 && sess.UserID == userID {
			continue
		}
		kept = append(kept, sess)
	}
	if len(kept) == len(s.sessions) {
		return nil
	}
	s.sessions = kept
	return s.persistLocked(ctx, storage.KeySessions)
}
