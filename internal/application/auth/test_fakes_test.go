package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	ctx    context.Context
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserStore struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]string

	// injected errors (if set, method returns error)
	createErr     error
	getByIDErr    error
	getByEmailErr error
	getByOTPErr   error
	updateErr     error

	updates int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    map[string]domain.User{},
		byEmail: map[string]string{},
	}
}

func (f *fakeUserStore) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
}

func (f *fakeUserStore) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return f.byID[id], nil
}

func (f *fakeUserStore) GetByEmailAndOTP(ctx context.Context, email string, code int) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByOTPErr != nil {
		return domain.User{}, f.getByOTPErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u := f.byID[id]
	if u.PendingOTP == nil || *u.PendingOTP != code {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserStore) Update(ctx context.Context, id string, fn func(u *domain.User) error) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return domain.User{}, f.updateErr
	}
	cur, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	next := cur
	if err := fn(&next); err != nil {
		return domain.User{}, err
	}
	if next.Email != cur.Email {
		if owner, taken := f.byEmail[next.Email]; taken && owner != id {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		delete(f.byEmail, cur.Email)
		f.byEmail[next.Email] = id
	}
	f.byID[id] = next
	f.updates++
	return next, nil
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

// fakeOTP hands out codes from a fixed sequence, then 1000 forever.
type fakeOTP struct {
	mu    sync.Mutex
	codes []int
	err   error
}

func (g *fakeOTP) Generate() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return 0, g.err
	}
	if len(g.codes) == 0 {
		return 1000, nil
	}
	c := g.codes[0]
	g.codes = g.codes[1:]
	return c, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	issueFn func(userID string) (Token, error)
	issued  int
}

func (f *fakeTokens) Issue(userID string) (Token, error) {
	if f.issueFn != nil {
		return f.issueFn(userID)
	}
	f.mu.Lock()
	f.issued++
	f.mu.Unlock()
	return Token{AccessToken: "tok:" + userID, TokenType: "Bearer"}, nil
}

func (f *fakeTokens) Verify(token string) (TokenClaims, error) {
	if uid, ok := strings.CutPrefix(token, "tok:"); ok && uid != "" {
		return TokenClaims{UserID: uid}, nil
	}
	return TokenClaims{}, domain.ErrTokenInvalid()
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []OTPMessage
}

func (n *fakeNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) last(t *testing.T) OTPMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("expected a notification, got none")
	}
	return n.sent[len(n.sent)-1]
}

/*
Service factory for tests
*/

type testDeps struct {
	users    *fakeUserStore
	hasher   *fakeHasher
	otps     *fakeOTP
	tokens   *fakeTokens
	notifier *fakeNotifier
	audits   *[]auditEntry
	clock    *time.Time
}

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	d := &testDeps{
		users:    newFakeUserStore(),
		hasher:   &fakeHasher{},
		otps:     &fakeOTP{},
		tokens:   &fakeTokens{},
		notifier: &fakeNotifier{},
		audits:   &[]auditEntry{},
		clock:    &now,
	}

	svc := NewService(d.users, d.hasher, d.otps, d.tokens, d.notifier, Config{}).
		WithClock(func() time.Time { return *d.clock }).
		WithAudit(func(ctx context.Context, action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*d.audits = append(*d.audits, auditEntry{ctx: ctx, action: action, fields: cp})
		})

	if svc == nil {
		t.Fatalf("svc is nil")
	}
	return svc, d
}

// seedUser stores a user with password "secret123".
func seedUser(d *testDeps, id, email string, verified bool) domain.User {
	u := domain.User{
		ID:           id,
		Name:         "User " + id,
		Email:        email,
		PasswordHash: "hash:secret123",
		Verified:     verified,
		CreatedAt:    *d.clock,
		UpdatedAt:    *d.clock,
	}
	d.users.put(u)
	return u
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected domain code %q, got nil", wantCode)
	}
	if !domain.Is(err, wantCode) {
		t.Fatalf("expected domain code %q, got err=%v", wantCode, err)
	}
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	requireDomainCode(t, err, "validation_failed")
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.Error, got %T", err)
	}
	if _, ok := de.Meta[field]; !ok {
		t.Fatalf("expected field error for %q, got %v", field, de.Meta)
	}
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	if audits == nil || len(*audits) == 0 {
		t.Fatalf("expected audit entry, got none")
	}
	e := (*audits)[len(*audits)-1]
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func ptr[T any](v T) *T { return &v }
