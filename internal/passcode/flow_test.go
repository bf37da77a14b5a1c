// ABOUTME: Tests for the passcode reset state machine
// ABOUTME: Covers the validity window, failure ordering, reissue, single-use mode and late verifies per backend

package passcode

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
)

var codeInBody = regexp.MustCompile(`passcode: ([0-9]{6})$`)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	m := codeInBody.FindStringSubmatch(f.sent[len(f.sent)-1].body)
	require.Len(t, m, 2)
	return m[1]
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type flowFixture struct {
	flow    *Flow
	records *MemoryStore
	mailer  *fakeMailer
	clock   *clock
	ident   *store.Identity
}

func newFlowFixture(t *testing.T, opts Options) *flowFixture {
	t.Helper()
	s := store.NewMockStore()
	ident := &store.Identity{Username: "alice", Email: "a@b.com", PasswordHash: "x"}
	require.NoError(t, s.CreateIdentity(context.Background(), ident))

	records := NewMemoryStore(time.Hour, 100)
	t.Cleanup(func() { records.Close() })

	c := &clock{t: time.Unix(1700000000, 0)}
	opts.Clock = c.now
	mailer := &fakeMailer{}
	return &flowFixture{
		flow:    NewFlow(records, s, mailer, opts),
		records: records,
		mailer:  mailer,
		clock:   c,
		ident:   ident,
	}
}

func TestRequest_StoresAndMails(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))

	rec, err := fx.records.Get(ctx, Key("a@b.com"))
	require.NoError(t, err)
	assert.Regexp(t, `^[1-9][0-9]{5}$`, rec.Code)
	assert.Equal(t, fx.clock.t.Unix(), rec.IssuedAt.Unix())

	require.Len(t, fx.mailer.sent, 1)
	assert.Equal(t, "a@b.com", fx.mailer.sent[0].to)
	assert.Equal(t, "Password Reminder", fx.mailer.sent[0].subject)
	assert.Equal(t, rec.Code, fx.mailer.lastCode(t))
}

func TestRequest_MailFailure(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	fx.mailer.err = errors.New("relay down")

	err := fx.flow.Request(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, fx.mailer.err)
}

func TestVerify_WithinWindow(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	fx.clock.advance(6 * time.Minute)
	scope := session.NewMapScope()
	id, err := fx.flow.Verify(ctx, scope, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, fx.ident.ID, id)

	bound, err := session.Current(scope)
	require.NoError(t, err)
	assert.Equal(t, fx.ident.ID, bound)
}

func TestVerify_AtWindowEdge(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	fx.clock.advance(DefaultValidity)
	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.NoError(t, err)

	fx.clock.advance(time.Second)
	_, err = fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Expired(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	fx.clock.advance(8 * time.Minute)
	scope := session.NewMapScope()
	_, err := fx.flow.Verify(ctx, scope, "a@b.com", code)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = session.Current(scope)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerify_MismatchRegardlessOfTime(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}

	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", wrong)
	assert.ErrorIs(t, err, ErrMismatched)

	fx.clock.advance(time.Hour)
	_, err = fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", wrong)
	assert.ErrorIs(t, err, ErrMismatched)
}

func TestVerify_NoActiveRequest(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	_, err := fx.flow.Verify(context.Background(), session.NewMapScope(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrNoActiveRequest)
}

func TestVerify_UnknownEmail(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "ghost@b.com"))
	code := fx.mailer.lastCode(t)

	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "ghost@b.com", code)
	assert.ErrorIs(t, err, ErrUnknownEmail)
}

func TestVerify_ReissueReplacesCode(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()

	var first string
	for {
		require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
		if first == "" {
			first = fx.mailer.lastCode(t)
			continue
		}
		if fx.mailer.lastCode(t) != first {
			break
		}
	}
	second := fx.mailer.lastCode(t)

	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", first)
	assert.ErrorIs(t, err, ErrMismatched)
	_, err = fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", second)
	assert.NoError(t, err)
}

func TestVerify_ReusableByDefault(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	require.NoError(t, err)
	_, err = fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.NoError(t, err)
}

func TestVerify_SingleUse(t *testing.T) {
	fx := newFlowFixture(t, Options{SingleUse: true})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "a@b.com"))
	code := fx.mailer.lastCode(t)

	_, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	require.NoError(t, err)
	_, err = fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.ErrorIs(t, err, ErrNoActiveRequest)
}

func TestVerify_EmailCaseInsensitive(t *testing.T) {
	fx := newFlowFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, fx.flow.Request(ctx, "A@B.com"))
	code := fx.mailer.lastCode(t)

	id, err := fx.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, fx.ident.ID, id)
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}

type backendFlow struct {
	flow   *Flow
	mailer *fakeMailer
	clock  *clock
}

func newBackendFlow(t *testing.T, records Store, start time.Time) *backendFlow {
	t.Helper()
	s := store.NewMockStore()
	require.NoError(t, s.CreateIdentity(context.Background(), &store.Identity{Username: "alice", Email: "a@b.com", PasswordHash: "x"}))

	c := &clock{t: start}
	mailer := &fakeMailer{}
	return &backendFlow{
		flow:   NewFlow(records, s, mailer, Options{Clock: c.now}),
		mailer: mailer,
		clock:  c,
	}
}

func TestVerify_LateReportsExpired_Memory(t *testing.T) {
	records := NewMemoryStore(DefaultRetention, 100)
	t.Cleanup(func() { records.Close() })
	bf := newBackendFlow(t, records, time.Unix(1700000000, 0))
	ctx := context.Background()

	require.NoError(t, bf.flow.Request(ctx, "a@b.com"))
	code := bf.mailer.lastCode(t)

	bf.clock.advance(10 * time.Minute)
	records.removeExpired(time.Now().Add(10 * time.Minute))

	_, err := bf.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_LateReportsExpired_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	records, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), DefaultRetention)
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })
	bf := newBackendFlow(t, records, time.Unix(1700000000, 0))
	ctx := context.Background()

	require.NoError(t, bf.flow.Request(ctx, "a@b.com"))
	code := bf.mailer.lastCode(t)

	bf.clock.advance(10 * time.Minute)
	mr.FastForward(10 * time.Minute)

	_, err = bf.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WindowEdgeAgreesAcrossBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			s := NewMemoryStore(DefaultRetention, 10)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			start := time.Unix(1700000000, 900*int64(time.Millisecond))
			bf := newBackendFlow(t, newStore(t), start)
			ctx := context.Background()

			require.NoError(t, bf.flow.Request(ctx, "a@b.com"))
			code := bf.mailer.lastCode(t)

			bf.clock.advance(DefaultValidity)
			_, err := bf.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
			assert.NoError(t, err)

			bf.clock.advance(time.Second)
			_, err = bf.flow.Verify(ctx, session.NewMapScope(), "a@b.com", code)
			assert.ErrorIs(t, err, ErrExpired)
		})
	}
}
