package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/snapshare/internal/auth"
	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeRelay struct {
	mu        sync.Mutex
	n         int
	released  []string
	uploadErr error
}

func (r *fakeRelay) Upload(_ context.Context, data []byte, _ string) (models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uploadErr != nil {
		return models.Image{}, r.uploadErr
	}
	r.n++
	id := fmt.Sprintf("snapshare/%d.jpg", r.n)
	return models.Image{URL: "memory://media/" + id, PublicID: id}, nil
}

func (r *fakeRelay) Release(_ context.Context, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, publicID)
	return nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

// flakyUsers fails every write to one edge.
type flakyUsers struct {
	repository.UserRepository
	failEdge repository.Edge
}

func (f *flakyUsers) AddEdge(ctx context.Context, id primitive.ObjectID, edge repository.Edge, target primitive.ObjectID) error {
	if edge == f.failEdge {
		return errors.New("connection reset")
	}
	return f.UserRepository.AddEdge(ctx, id, edge, target)
}

func (f *flakyUsers) RemoveEdge(ctx context.Context, id primitive.ObjectID, edge repository.Edge, target primitive.ObjectID) error {
	if edge == f.failEdge {
		return errors.New("connection reset")
	}
	return f.UserRepository.RemoveEdge(ctx, id, edge, target)
}

type fixture struct {
	store *repository.MemoryStore
	relay *fakeRelay
	mail  *fakeMailer
	pub   *events.Recorder
	users *UserService
	posts *PostService
	auth  *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		relay: &fakeRelay{},
		mail:  &fakeMailer{},
		pub:   &events.Recorder{},
	}
	log := zap.NewNop()
	f.users = NewUserService(f.store.Users(), f.store.Posts(), f.relay, f.pub, log)
	f.posts = NewPostService(f.store.Users(), f.store.Posts(), f.store.Comments(), f.relay, f.pub, log)
	f.auth = NewAuthService(
		f.store.Users(),
		auth.NewHasher(bcrypt.MinCost),
		auth.NewTokenManager("test-secret", time.Hour),
		auth.NewMemoryDenylist(),
		f.mail,
		f.pub,
		log,
		AuthConfig{VerifyOTPTTL: 24 * time.Hour, ResetOTPTTL: 5 * time.Minute},
	)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Bio: name + " bio"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := f.store.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, owner *models.User, caption string) *models.PostView {
	t.Helper()
	v, err := f.posts.CreatePost(context.Background(), owner.ID, caption, &Upload{Data: []byte("img"), ContentType: "image/png"})
	require.NoError(t, err)
	return v
}

func jpegUpload() *Upload { return &Upload{Data: []byte("img"), ContentType: "image/jpeg"} }

func TestToggleFollowWritesBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	res, err := f.users.ToggleFollow(ctx, alice.ID, bob.ID.Hex())
	require.NoError(t, err)
	require.True(t, res.Following)
	require.Equal(t, "Followed successfully", res.Message())
	require.Equal(t, []primitive.ObjectID{bob.ID}, res.User.Following)
	require.Equal(t, []primitive.ObjectID{alice.ID}, f.reload(t, bob.ID).Followers)

	following, err := f.users.IsFollowing(ctx, alice.ID, bob.ID.Hex())
	require.NoError(t, err)
	require.True(t, following)

	res, err = f.users.ToggleFollow(ctx, alice.ID, bob.ID.Hex())
	require.NoError(t, err)
	require.False(t, res.Following)
	require.Equal(t, "Unfollowed successfully", res.Message())
	require.Empty(t, f.reload(t, alice.ID).Following)
	require.Empty(t, f.reload(t, bob.ID).Followers)

	require.Equal(t, []string{events.UserFollowed, events.UserUnfollowed}, f.pub.Types())
}

func TestToggleFollowRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	for _, raw := range []string{alice.ID.Hex(), strings.ToUpper(alice.ID.Hex())} {
		_, err := f.users.ToggleFollow(ctx, alice.ID, raw)
		require.True(t, errs.Is(err, errs.KindValidation), raw)
	}
	self := f.reload(t, alice.ID)
	require.Empty(t, self.Following)
	require.Empty(t, self.Followers)
	require.Empty(t, f.pub.Types())

	_, err := f.users.ToggleFollow(ctx, alice.ID, primitive.NewObjectID().Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))

	_, err = f.users.ToggleFollow(ctx, alice.ID, "not-an-id")
	require.True(t, errs.Is(err, errs.KindNotFound))
}

func TestToggleFollowRevertsWhenSecondWriteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	flaky := &flakyUsers{UserRepository: f.store.Users(), failEdge: repository.EdgeFollowers}
	svc := NewUserService(flaky, f.store.Posts(), f.relay, f.pub, zap.NewNop())

	_, err := svc.ToggleFollow(ctx, alice.ID, bob.ID.Hex())
	require.True(t, errs.Is(err, errs.KindUpstream))
	require.Empty(t, f.reload(t, alice.ID).Following)
	require.Empty(t, f.reload(t, bob.ID).Followers)
	require.Empty(t, f.pub.Types())
}

func TestGetProfilePopulatesPostsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	first := f.post(t, alice, "first")
	second := f.post(t, alice, "second")
	saved := f.post(t, bob, "bob's")
	_, err := f.posts.ToggleSave(ctx, alice.ID, saved.ID.Hex())
	require.NoError(t, err)

	p, err := f.users.GetProfile(ctx, alice.ID.Hex())
	require.NoError(t, err)
	require.Len(t, p.Posts, 2)
	require.Equal(t, second.ID, p.Posts[0].ID)
	require.Equal(t, first.ID, p.Posts[1].ID)
	require.Len(t, p.SavedPosts, 1)
	require.Equal(t, saved.ID, p.SavedPosts[0].ID)

	_, err = f.users.GetProfile(ctx, primitive.NewObjectID().Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))
}

func TestEditProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	bio := "hello"
	u, err := f.users.EditProfile(ctx, alice, EditProfileInput{Bio: &bio, Picture: jpegUpload()})
	require.NoError(t, err)
	require.Equal(t, "hello", u.Bio)
	require.Equal(t, "memory://media/snapshare/1.jpg", u.ProfilePicture)
	require.Empty(t, f.relay.released)

	u, err = f.users.EditProfile(ctx, u, EditProfileInput{Picture: jpegUpload()})
	require.NoError(t, err)
	require.Equal(t, "hello", u.Bio)
	require.Equal(t, "memory://media/snapshare/2.jpg", u.ProfilePicture)
	require.Equal(t, []string{"snapshare/1.jpg"}, f.relay.released)

	long := strings.Repeat("x", models.MaxBioLength+1)
	_, err = f.users.EditProfile(ctx, u, EditProfileInput{Bio: &long})
	require.True(t, errs.Is(err, errs.KindValidation))
}

func TestSuggestedExcludesCaller(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	f.user(t, "bob")
	f.user(t, "carol")

	users, err := f.users.Suggested(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		require.NotEqual(t, alice.ID, u.ID)
	}
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	v, err := f.posts.CreatePost(ctx, alice.ID, "  sunset  ", jpegUpload())
	require.NoError(t, err)
	require.Equal(t, "sunset", v.Caption)
	require.Equal(t, "alice@example.com", v.User.Email)
	require.Equal(t, "alice bio", v.User.Bio)
	require.Equal(t, []primitive.ObjectID{v.ID}, f.reload(t, alice.ID).Posts)
	require.Equal(t, []string{events.PostCreated}, f.pub.Types())
}

func TestCreatePostRejectsBeforeUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.posts.CreatePost(ctx, alice.ID, "no image", nil)
	require.True(t, errs.Is(err, errs.KindValidation))

	_, err = f.posts.CreatePost(ctx, alice.ID, strings.Repeat("a", models.MaxCaptionLength+1), jpegUpload())
	require.True(t, errs.Is(err, errs.KindValidation))
	require.Zero(t, f.relay.n)

	f.relay.uploadErr = errs.Validation("Only image files are allowed")
	_, err = f.posts.CreatePost(ctx, alice.ID, "pdf", jpegUpload())
	require.True(t, errs.Is(err, errs.KindValidation))

	all, err := f.posts.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreatePostKeepsPostWhenOwnerMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ghost := primitive.NewObjectID()

	v, err := f.posts.CreatePost(ctx, ghost, "orphan", jpegUpload())
	require.NoError(t, err)
	require.Nil(t, v.User)

	all, err := f.posts.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestToggleSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, bob, "bob's")

	res, err := f.posts.ToggleSave(ctx, alice.ID, p.ID.Hex())
	require.NoError(t, err)
	require.True(t, res.Saved)
	require.Equal(t, "Post saved successfully", res.Message())
	require.Equal(t, []primitive.ObjectID{p.ID}, res.User.SavedPosts)

	res, err = f.posts.ToggleSave(ctx, alice.ID, p.ID.Hex())
	require.NoError(t, err)
	require.False(t, res.Saved)
	require.Empty(t, res.User.SavedPosts)

	_, err = f.posts.ToggleSave(ctx, primitive.NewObjectID(), p.ID.Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))

	_, err = f.posts.ToggleSave(ctx, alice.ID, primitive.NewObjectID().Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDeletePostCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	p := f.post(t, alice, "doomed")
	keep := f.post(t, alice, "kept")

	for _, u := range []*models.User{bob, carol} {
		_, err := f.posts.ToggleSave(ctx, u.ID, p.ID.Hex())
		require.NoError(t, err)
	}
	_, err := f.posts.ToggleSave(ctx, bob.ID, keep.ID.Hex())
	require.NoError(t, err)
	_, err = f.posts.AddComment(ctx, bob.ID, p.ID.Hex(), "nice")
	require.NoError(t, err)
	_, err = f.posts.AddComment(ctx, carol.ID, p.ID.Hex(), "wow")
	require.NoError(t, err)

	err = f.posts.DeletePost(ctx, bob.ID, p.ID.Hex())
	require.True(t, errs.Is(err, errs.KindForbidden))
	_, err = f.store.Posts().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []primitive.ObjectID{p.ID, keep.ID}, f.reload(t, alice.ID).Posts)
	require.ElementsMatch(t, []primitive.ObjectID{p.ID, keep.ID}, f.reload(t, bob.ID).SavedPosts)
	require.Equal(t, []primitive.ObjectID{p.ID}, f.reload(t, carol.ID).SavedPosts)
	require.Equal(t, 2, f.store.CommentCount(p.ID))
	require.Empty(t, f.relay.released)

	require.NoError(t, f.posts.DeletePost(ctx, alice.ID, p.ID.Hex()))

	_, err = f.store.Posts().FindByID(ctx, p.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, []primitive.ObjectID{keep.ID}, f.reload(t, alice.ID).Posts)
	require.Equal(t, []primitive.ObjectID{keep.ID}, f.reload(t, bob.ID).SavedPosts)
	require.Empty(t, f.reload(t, carol.ID).SavedPosts)
	require.Zero(t, f.store.CommentCount(p.ID))
	require.Equal(t, []string{p.Image.PublicID}, f.relay.released)

	err = f.posts.DeletePost(ctx, alice.ID, p.ID.Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "likeable")

	liked, err := f.posts.ToggleLike(ctx, bob.ID, p.ID.Hex())
	require.NoError(t, err)
	require.True(t, liked)
	require.Equal(t, "Post liked successfully", LikeMessage(liked))

	got, err := f.store.Posts().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, []primitive.ObjectID{bob.ID}, got.Likes)

	liked, err = f.posts.ToggleLike(ctx, bob.ID, p.ID.Hex())
	require.NoError(t, err)
	require.False(t, liked)
	require.Equal(t, "Post disliked successfully", LikeMessage(liked))

	got, err = f.store.Posts().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, got.Likes)

	_, err = f.posts.ToggleLike(ctx, bob.ID, primitive.NewObjectID().Hex())
	require.True(t, errs.Is(err, errs.KindNotFound))
}

func TestAddCommentAndFeedPopulation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	older := f.post(t, alice, "older")
	newer := f.post(t, bob, "newer")

	c, err := f.posts.AddComment(ctx, bob.ID, older.ID.Hex(), "  first!  ")
	require.NoError(t, err)
	require.Equal(t, "first!", c.Text)
	require.Equal(t, "bob", c.User.Username)
	require.Empty(t, c.User.Email)

	_, err = f.posts.AddComment(ctx, bob.ID, older.ID.Hex(), "   ")
	require.True(t, errs.Is(err, errs.KindValidation))
	_, err = f.posts.AddComment(ctx, bob.ID, primitive.NewObjectID().Hex(), "hi")
	require.True(t, errs.Is(err, errs.KindNotFound))

	feed, err := f.posts.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, newer.ID, feed[0].ID)
	require.Equal(t, older.ID, feed[1].ID)
	require.Equal(t, "alice", feed[1].User.Username)
	require.Empty(t, feed[1].User.Email)
	require.Len(t, feed[1].Comments, 1)
	require.Equal(t, "bob", feed[1].Comments[0].User.Username)

	mine, err := f.posts.ListByOwner(ctx, alice.ID.Hex())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, older.ID, mine[0].ID)
	require.Len(t, mine[0].Comments, 1)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.auth.Register(ctx, RegisterInput{
		Username:        "alice",
		Email:           "Alice@Example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, s.Token)
	require.Equal(t, "alice@example.com", s.User.Email)
	require.False(t, s.User.IsVerified)
	require.Len(t, f.mail.sent, 1)
	require.Contains(t, f.mail.sent[0].body, s.User.OTP)

	_, err = f.auth.Register(ctx, RegisterInput{
		Username:        "alice2",
		Email:           "alice@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	})
	require.True(t, errs.Is(err, errs.KindValidation))

	login, err := f.auth.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, s.User.ID, login.User.ID)

	_, err = f.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	require.True(t, errs.Is(err, errs.KindAuth))
	_, err = f.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	require.True(t, errs.Is(err, errs.KindAuth))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"mismatch":    {Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret2"},
		"bad email":   {Username: "alice", Email: "not-an-email", Password: "secret1", PasswordConfirm: "secret1"},
		"short name":  {Username: "al", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1"},
		"long name":   {Username: strings.Repeat("a", 31), Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1"},
		"short pass":  {Username: "alice", Email: "a@example.com", Password: "abcd", PasswordConfirm: "abcd"},
		"missing all": {},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, in)
			require.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
		})
	}
	require.Empty(t, f.mail.sent)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	s, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, s.Token)
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.auth.Register(ctx, RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)

	u, claims, err := f.auth.Authenticate(ctx, s.Token)
	require.NoError(t, err)
	require.Equal(t, s.User.ID, u.ID)

	_, _, err = f.auth.Authenticate(ctx, "")
	require.True(t, errs.Is(err, errs.KindAuth))
	_, _, err = f.auth.Authenticate(ctx, s.Token+"x")
	require.True(t, errs.Is(err, errs.KindAuth))

	require.NoError(t, f.auth.Logout(ctx, claims))
	_, _, err = f.auth.Authenticate(ctx, s.Token)
	require.True(t, errs.Is(err, errs.KindAuth))
}

func TestAuthenticateRejectsTokenOfUnknownAccount(t *testing.T) {
	f := newFixture(t)
	token, _, err := auth.NewTokenManager("test-secret", time.Hour).Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	_, _, err = f.auth.Authenticate(context.Background(), token)
	require.True(t, errs.Is(err, errs.KindAuth))
}

func TestVerifyAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.auth.Register(ctx, RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	caller := f.reload(t, s.User.ID)

	_, err = f.auth.VerifyAccount(ctx, caller, VerifyInput{OTP: "not-it"})
	require.True(t, errs.Is(err, errs.KindValidation))

	u, err := f.auth.VerifyAccount(ctx, caller, VerifyInput{OTP: caller.OTP})
	require.NoError(t, err)
	require.True(t, u.IsVerified)
	require.Empty(t, u.OTP)

	err = f.auth.ResendOTP(ctx, u)
	require.True(t, errs.Is(err, errs.KindValidation))
}

func TestVerifyAccountRejectsExpiredOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.auth.Register(ctx, RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	caller := f.reload(t, s.User.ID)

	f.auth.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = f.auth.VerifyAccount(ctx, caller, VerifyInput{OTP: caller.OTP})
	require.True(t, errs.Is(err, errs.KindValidation))

	require.NoError(t, f.auth.ResendOTP(ctx, caller))
	refreshed := f.reload(t, caller.ID)
	require.NotEmpty(t, refreshed.OTP)
	require.Len(t, f.mail.sent, 2)

	u, err := f.auth.VerifyAccount(ctx, refreshed, VerifyInput{OTP: refreshed.OTP})
	require.NoError(t, err)
	require.True(t, u.IsVerified)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)

	err = f.auth.ForgetPassword(ctx, ForgetPasswordInput{Email: "nobody@example.com"})
	require.True(t, errs.Is(err, errs.KindNotFound))

	require.NoError(t, f.auth.ForgetPassword(ctx, ForgetPasswordInput{Email: "a@example.com"}))
	stored, err := f.store.Users().FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetPasswordOTP)

	_, err = f.auth.ResetPassword(ctx, ResetPasswordInput{
		Email: "a@example.com", OTP: "000000x", Password: "newpass", PasswordConfirm: "newpass",
	})
	require.True(t, errs.Is(err, errs.KindValidation))

	s, err := f.auth.ResetPassword(ctx, ResetPasswordInput{
		Email: "a@example.com", OTP: stored.ResetPasswordOTP, Password: "newpass", PasswordConfirm: "newpass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, s.Token)

	_, err = f.auth.Login(ctx, LoginInput{Email: "a@example.com", Password: "secret1"})
	require.True(t, errs.Is(err, errs.KindAuth))
	_, err = f.auth.Login(ctx, LoginInput{Email: "a@example.com", Password: "newpass"})
	require.NoError(t, err)

	_, err = f.auth.ResetPassword(ctx, ResetPasswordInput{
		Email: "a@example.com", OTP: stored.ResetPasswordOTP, Password: "again1", PasswordConfirm: "again1",
	})
	require.True(t, errs.Is(err, errs.KindValidation))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.auth.Register(ctx, RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	caller := f.reload(t, s.User.ID)

	_, err = f.auth.ChangePassword(ctx, caller, ChangePasswordInput{
		CurrentPassword: "wrong", NewPassword: "newpass", NewPasswordConfirm: "newpass",
	})
	require.True(t, errs.Is(err, errs.KindAuth))

	_, err = f.auth.ChangePassword(ctx, caller, ChangePasswordInput{
		CurrentPassword: "secret1", NewPassword: "newpass", NewPasswordConfirm: "different",
	})
	require.True(t, errs.Is(err, errs.KindValidation))

	_, err = f.auth.ChangePassword(ctx, caller, ChangePasswordInput{
		CurrentPassword: "secret1", NewPassword: "newpass", NewPasswordConfirm: "newpass",
	})
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, LoginInput{Email: "a@example.com", Password: "newpass"})
	require.NoError(t, err)
}

func TestValidationMessage(t *testing.T) {
	f := newFixture(t)
	err := f.auth.check(RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1", PasswordConfirm: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Passwords are not the same")
}
