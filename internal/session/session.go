package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/kvstore"
	"go.uber.org/zap"
)

const (
	DefaultLoginDelay    = time.Second
	DefaultRegisterDelay = 1500 * time.Millisecond

	loginAvatarColors    = "background=4ecdc4&color=fff"
	registerAvatarColors = "background=ff6b6b&color=fff"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("not logged in")
)

// Service is a simulated authentication session for one profile. Any well-formed
// email logs in; the user is kept in storage until logout.
type Service struct {
	mu            sync.Mutex
	store         *kvstore.Store
	loginDelay    time.Duration
	registerDelay time.Duration
	now           func() time.Time
	log           *zap.Logger
}

type Option func(*Service)

func WithDelays(login, register time.Duration) Option {
	return func(s *Service) {
		if login >= 0 {
			s.loginDelay = login
		}
		if register >= 0 {
			s.registerDelay = register
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(store *kvstore.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		loginDelay:    DefaultLoginDelay,
		registerDelay: DefaultRegisterDelay,
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("session")
	return s
}

func (s *Service) Login(ctx context.Context, email, password string) (d.User, error) {
	email = strings.TrimSpace(email)
	if err := validate(email, password); err != nil {
		return d.User{}, err
	}
	if err := sleep(ctx, s.loginDelay); err != nil {
		return d.User{}, err
	}

	name := localPart(email)
	user := d.User{
		ID:     d.IDFromInt(1),
		Email:  email,
		Name:   name,
		Avatar: avatarURL(name, loginAvatarColors),
	}
	s.save(ctx, user)
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) Register(ctx context.Context, name, email, password string) (d.User, error) {
	email = strings.TrimSpace(email)
	if err := validate(email, password); err != nil {
		return d.User{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = localPart(email)
	}
	if err := sleep(ctx, s.registerDelay); err != nil {
		return d.User{}, err
	}

	user := d.User{
		ID:     d.IDFromInt(s.now().UnixMilli()),
		Email:  email,
		Name:   name,
		Avatar: avatarURL(name, registerAvatarColors),
	}
	s.save(ctx, user)
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Remove(ctx, kvstore.KeyUser)
	s.store.Remove(ctx, kvstore.KeyUserID)
}

// Profile holds the editable user fields. Empty fields are left unchanged.
type Profile struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (s *Service) UpdateProfile(ctx context.Context, p Profile) (d.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user d.User
	if !s.store.Read(ctx, kvstore.KeyUser, &user) {
		return d.User{}, ErrNotLoggedIn
	}
	if p.Email != "" {
		if !strings.Contains(p.Email, "@") {
			return d.User{}, fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
		}
		user.Email = p.Email
	}
	if p.Name != "" {
		user.Name = p.Name
	}
	if p.Avatar != "" {
		user.Avatar = p.Avatar
	}
	s.store.Write(ctx, kvstore.KeyUser, user)
	return user, nil
}

func (s *Service) Current(ctx context.Context) (d.User, bool) {
	var user d.User
	if !s.store.Read(ctx, kvstore.KeyUser, &user) || !user.ID.Valid() {
		return d.User{}, false
	}
	return user, true
}

// UserID is the id cart and order data is recorded under: the logged-in user,
// then the id left by an earlier session, then the guest id.
func (s *Service) UserID(ctx context.Context) d.ID {
	if user, ok := s.Current(ctx); ok {
		return user.ID
	}
	if raw, ok := s.store.ReadString(ctx, kvstore.KeyUserID); ok && strings.TrimSpace(raw) != "" {
		return d.ID(strings.TrimSpace(raw))
	}
	return d.GuestUserID
}

func (s *Service) save(ctx context.Context, user d.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Write(ctx, kvstore.KeyUser, user)
	s.store.WriteString(ctx, kvstore.KeyUserID, user.ID.String())
}

func WelcomeBack(u d.User) string { return fmt.Sprintf("Welcome back, %s!", u.Name) }
func Welcome(u d.User) string     { return fmt.Sprintf("Welcome to LuxeCart, %s!", u.Name) }

const (
	GoodbyeMessage        = "See you next time!"
	ProfileUpdatedMessage = "Profile updated!"
)

func validate(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: malformed email", ErrInvalidCredentials)
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	return nil
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func avatarURL(name, colors string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&" + colors
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
