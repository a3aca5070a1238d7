package session_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBackend implements session.Backend
type MockBackend struct {
	mock.Mock

	mu        sync.Mutex
	listeners []func(session.AuthEvent)
}

func (m *MockBackend) CurrentUser(ctx context.Context) (*session.AuthUser, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*session.AuthUser)
	return user, args.Error(1)
}

func (m *MockBackend) Subscribe(fn func(session.AuthEvent)) func() {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
	return func() {}
}

// Emit delivers an event to every subscribed listener, in order.
func (m *MockBackend) Emit(ev session.AuthEvent) {
	m.mu.Lock()
	listeners := append([]func(session.AuthEvent){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (m *MockBackend) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*session.AuthUser, error) {
	args := m.Called(ctx, email, password, metadata)
	user, _ := args.Get(0).(*session.AuthUser)
	return user, args.Error(1)
}

func (m *MockBackend) SignIn(ctx context.Context, email, password string) (*session.AuthUser, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*session.AuthUser)
	return user, args.Error(1)
}

func (m *MockBackend) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockBackend) UpdatePassword(ctx context.Context, newPassword string) error {
	args := m.Called(ctx, newPassword)
	return args.Error(0)
}

// MockProfileStore implements session.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*session.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*session.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) Create(ctx context.Context, record *session.Profile) (*session.Profile, error) {
	args := m.Called(ctx, record)
	profile, _ := args.Get(0).(*session.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) Update(ctx context.Context, id uuid.UUID, changes session.ProfileChanges) (*session.Profile, error) {
	args := m.Called(ctx, id, changes)
	profile, _ := args.Get(0).(*session.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) GetOrCreate(ctx context.Context, record *session.Profile) (*session.Profile, error) {
	args := m.Called(ctx, record)
	profile, _ := args.Get(0).(*session.Profile)
	return profile, args.Error(1)
}

// navRecorder captures navigation calls from the gateway.
type navRecorder struct {
	mu     sync.Mutex
	visits []string
}

func (n *navRecorder) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits = append(n.visits, path)
}

func (n *navRecorder) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.visits) == 0 {
		return ""
	}
	return n.visits[len(n.visits)-1]
}

func (n *navRecorder) Visits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.visits...)
}

// fakeClock is a manually advanced clock for cache freshness tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testUser() *session.AuthUser {
	return &session.AuthUser{
		ID:    uuid.MustParse("0b21cf40-2c3f-4c65-9b3c-8d1fd4f0a01a"),
		Email: "ada@example.com",
	}
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
