package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySubscriber es la fila en memoria.
type MemorySubscriber struct {
	ID           string
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       string
}

// Memory es un Store en memoria para tests. Las escrituras dentro de
// una transacción se bufferean y recién se aplican en Commit.
//
// Los hooks Fail* permiten inyectar fallas de infraestructura en el
// punto exacto que un test necesita.
type Memory struct {
	mu          sync.Mutex
	Subscribers map[string]*MemorySubscriber // id -> fila
	Tokens      map[string]string            // token -> subscriber id
	Editors     map[string]*Editor           // username -> credencial

	FailBegin   error
	FailInsert  error
	FailToken   error
	FailCommit  error
	FailConfirm error
	FailList    error
	FailLookup  error
}

func NewMemory() *Memory {
	return &Memory{
		Subscribers: map[string]*MemorySubscriber{},
		Tokens:      map[string]string{},
		Editors:     map[string]*Editor{},
	}
}

type memoryTx struct {
	s    *Memory
	ops  []func()
	done bool
}

func (t *memoryTx) Commit(ctx context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if t.s.FailCommit != nil {
		return &StorageError{Op: "commit", Err: t.s.FailCommit}
	}
	for _, op := range t.ops {
		op()
	}
	return nil
}

// Rollback después de Commit es un no-op, igual que en pg.
func (t *memoryTx) Rollback(ctx context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.ops = nil
	return nil
}

func (s *Memory) BeginTx(ctx context.Context) (Tx, error) {
	if s.FailBegin != nil {
		return nil, &StorageError{Op: "begin", Err: s.FailBegin}
	}
	return &memoryTx{s: s}, nil
}

func (s *Memory) InsertSubscriber(ctx context.Context, tx Tx, email, name string) (string, error) {
	if s.FailInsert != nil {
		return "", &StorageError{Op: "insert subscriber", Err: s.FailInsert}
	}
	mt := tx.(*memoryTx)
	id := uuid.NewString()
	row := &MemorySubscriber{
		ID:           id,
		Email:        email,
		Name:         name,
		SubscribedAt: time.Now().UTC(),
		Status:       "pending_confirmation",
	}
	mt.ops = append(mt.ops, func() { s.Subscribers[id] = row })
	return id, nil
}

func (s *Memory) StoreToken(ctx context.Context, tx Tx, subscriberID, token string) error {
	if s.FailToken != nil {
		return &StorageError{Op: "store token", Err: s.FailToken}
	}
	mt := tx.(*memoryTx)
	mt.ops = append(mt.ops, func() { s.Tokens[token] = subscriberID })
	return nil
}

func (s *Memory) FindSubscriberByToken(ctx context.Context, token string) (string, error) {
	if s.FailLookup != nil {
		return "", &StorageError{Op: "find subscriber by token", Err: s.FailLookup}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.Tokens[token]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *Memory) ConfirmSubscriber(ctx context.Context, subscriberID string) error {
	if s.FailConfirm != nil {
		return &StorageError{Op: "confirm subscriber", Err: s.FailConfirm}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.Subscribers[subscriberID]; ok {
		row.Status = "confirmed"
	}
	return nil
}

func (s *Memory) ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error) {
	if s.FailList != nil {
		return nil, &StorageError{Op: "list confirmed", Err: s.FailList}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, row := range s.Subscribers {
		if row.Status == "confirmed" {
			out = append(out, row.Email)
		}
	}
	return out, nil
}

func (s *Memory) GetEditorByUsername(ctx context.Context, username string) (*Editor, error) {
	if s.FailLookup != nil {
		return nil, &StorageError{Op: "get editor", Err: s.FailLookup}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, ok := s.Editors[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ed
	return &cp, nil
}

func (s *Memory) Ping(ctx context.Context) error { return nil }

func (s *Memory) Close() {}
