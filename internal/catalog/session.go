package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TxMode distinguishes read-only from read-write transactions.
type TxMode int

const (
	modeNone TxMode = iota
	modeRead
	modeWrite
)

// Session is one slot borrowed from the Store's bounded pool; every
// Session issues its queries over the Store's single shared
// connection. It is not safe for concurrent use by more than one
// goroutine at a time; borrow one Session per request or per scanner
// worker.
type Session struct {
	store *Store
	mode  TxMode
}

// SessionPool hands out a bounded number of Sessions. Exhaustion past
// BorrowTimeout raises a typed LockTimeout error.
type SessionPool struct {
	store   *Store
	tokens  chan struct{}
	timeout time.Duration
}

func NewSessionPool(store *Store, size int, timeout time.Duration) *SessionPool {
	p := &SessionPool{
		store:   store,
		tokens:  make(chan struct{}, size),
		timeout: timeout,
	}
	for i := 0; i < size; i++ {
		p.tokens <- struct{}{}
	}
	return p
}

// Borrow blocks up to the pool's configured timeout for a free
// session slot. The returned release func must be called exactly once
// when the caller is done with the Session.
func (p *SessionPool) Borrow(ctx context.Context) (*Session, func(), error) {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.tokens:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-timer.C:
		return nil, nil, ErrLockTimeout("session pool exhausted")
	}

	sess := &Session{store: p.store}
	release := func() {
		sess.mode = modeNone
		p.tokens <- struct{}{}
	}
	return sess, release, nil
}

// checkReadTransaction panics in debug builds if called outside a
// ReadTransaction or WriteTransaction scope (both permit reads).
func (s *Session) checkReadTransaction() {
	if !s.store.debug {
		return
	}
	if s.mode != modeRead && s.mode != modeWrite {
		panic(fmt.Sprintf("catalog: read access outside a transaction (mode=%v)", s.mode))
	}
}

// checkWriteTransaction panics in debug builds if called outside a
// WriteTransaction scope.
func (s *Session) checkWriteTransaction() {
	if !s.store.debug {
		return
	}
	if s.mode != modeWrite {
		panic(fmt.Sprintf("catalog: write access outside a write transaction (mode=%v)", s.mode))
	}
}

// ReadTransaction runs fn holding the store's read lock: any number of
// read transactions may run concurrently, across sessions. Nested
// transactions on the same Session panic in debug mode.
func (s *Session) ReadTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	if s.store.debug && s.mode != modeNone {
		panic("catalog: nested transaction")
	}

	s.store.lock.RLock()
	defer s.store.lock.RUnlock()

	s.mode = modeRead
	defer func() { s.mode = modeNone }()

	return fn(&Tx{session: s, db: s.store.db.WithContext(ctx)})
}

// WriteTransaction runs fn holding the store's write lock exclusively:
// no other read or write transaction runs anywhere in the process for
// the duration. The underlying SQL transaction commits on success and
// rolls back if fn returns an error or panics.
func (s *Session) WriteTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	if s.store.debug && s.mode != modeNone {
		panic("catalog: nested transaction")
	}

	s.store.lock.Lock()
	defer s.store.lock.Unlock()

	s.mode = modeWrite
	defer func() { s.mode = modeNone }()

	return s.store.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{session: s, db: gtx})
	})
}

// Tx is the handle finders operate against. It carries the underlying
// *gorm.DB plus a back-reference to the owning Session so finders can
// assert the expected transaction mode before querying.
type Tx struct {
	session *Session
	db      *gorm.DB
}

func (tx *Tx) assertRead() { tx.session.checkReadTransaction() }
func (tx *Tx) assertWrite() { tx.session.checkWriteTransaction() }
