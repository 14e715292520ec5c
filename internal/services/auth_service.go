package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fathima-sithara/snapshare/internal/auth"
	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/fathima-sithara/snapshare/internal/events"
	"github.com/fathima-sithara/snapshare/internal/mailer"
	"github.com/fathima-sithara/snapshare/internal/models"
	"github.com/fathima-sithara/snapshare/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	otpLength = 6

	msgNotLoggedIn     = "You are not logged in. Please log in to get access."
	msgBadToken        = "Invalid or expired token. Please log in again."
	msgRevokedToken    = "This session has been logged out. Please log in again."
	msgUserGone        = "The user belonging to this token no longer exists."
	msgBadCredentials  = "Incorrect email or password"
	msgEmailInUse      = "Email already in use"
	msgNoEmailUser     = "No user found with this email"
	msgAlreadyVerified = "Your account is already verified"
)

type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=30"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=5"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyInput struct {
	OTP string `json:"otp" validate:"required"`
}

type ForgetPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required"`
	Password        string `json:"password" validate:"required,min=5"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type ChangePasswordInput struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=5"`
	NewPasswordConfirm string `json:"newPasswordConfirm" validate:"required,eqfield=NewPassword"`
}

// Session is an account together with a freshly issued credential.
type Session struct {
	User   *models.User
	Token  string
	Claims *auth.Claims
}

type AuthConfig struct {
	VerifyOTPTTL time.Duration
	ResetOTPTTL  time.Duration
}

type AuthService struct {
	users    repository.UserRepository
	hasher   *auth.Hasher
	tokens   *auth.TokenManager
	denylist auth.Denylist
	mail     mailer.Mailer
	pub      events.Publisher
	log      *zap.Logger
	validate *validator.Validate
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	denylist auth.Denylist,
	mail mailer.Mailer,
	pub events.Publisher,
	logger *zap.Logger,
	cfg AuthConfig,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		denylist: denylist,
		mail:     mail,
		pub:      pub,
		log:      logger,
		validate: validator.New(),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *AuthService) TokenTTL() time.Duration { return s.tokens.TTL() }

func (s *AuthService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return errs.Validation(ValidationMessage(err))
	}
	return nil
}

// ValidationMessage renders validator failures as one client-facing message.
func ValidationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid input data."
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("Please provide your %s", field))
		case "email":
			msgs = append(msgs, "Please provide a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "eqfield":
			msgs = append(msgs, "Passwords are not the same")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return "Invalid input data. " + strings.Join(msgs, ". ")
}

func (s *AuthService) issue(u *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, errs.Upstream("Could not issue a token", err)
	}
	return &Session{User: u, Token: token, Claims: claims}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *models.User, otp string) error {
	subject, body := mailer.VerificationEmail(u.Username, otp)
	return s.mail.Send(ctx, u.Email, subject, body)
}

// Register creates an unverified account, mails it a verification code and
// signs it in. A failed mail does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.check(in); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, errs.Validation(msgEmailInUse)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, storeErr(err, msgNoEmailUser)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errs.Upstream(msgStoreFailure, err)
	}
	otp, err := auth.GenerateOTP(otpLength)
	if err != nil {
		return nil, errs.Upstream(msgStoreFailure, err)
	}
	expires := s.now().Add(s.cfg.VerifyOTPTTL)

	u := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hash,
		OTP:        otp,
		OTPExpires: &expires,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return nil, errs.Validation(msgEmailInUse)
		}
		return nil, storeErr(err, msgNoEmailUser)
	}

	if err := s.sendVerification(ctx, u, otp); err != nil {
		s.log.Warn("verification mail not sent", zap.String("user", u.ID.Hex()), zap.Error(err))
	}
	publish(ctx, s.pub, s.log, events.UserRegistered, u.ID, u.ID)
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, errs.Validation("Please provide email and password")
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Auth(msgBadCredentials)
	}
	if err != nil {
		return nil, storeErr(err, msgNoEmailUser)
	}
	if !s.hasher.Compare(u.Password, in.Password) {
		return nil, errs.Auth(msgBadCredentials)
	}
	return s.issue(u)
}

// Authenticate validates a bearer token and loads its account fresh from
// the store, so deleted accounts and revoked tokens stop working at once.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, errs.Auth(msgNotLoggedIn)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, errs.Auth(msgBadToken)
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, errs.Upstream(msgStoreFailure, err)
	}
	if revoked {
		return nil, nil, errs.Auth(msgRevokedToken)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, errs.Auth(msgBadToken)
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.Auth(msgUserGone)
	}
	if err != nil {
		return nil, nil, storeErr(err, msgNoUser)
	}
	return u, claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return errs.Upstream(msgStoreFailure, err)
	}
	return nil
}

func otpMatches(stored, given string, expires *time.Time, now time.Time) bool {
	if stored == "" || expires == nil || now.After(*expires) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func (s *AuthService) VerifyAccount(ctx context.Context, caller *models.User, in VerifyInput) (*models.User, error) {
	in.OTP = strings.TrimSpace(in.OTP)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if caller.IsVerified {
		return nil, errs.Validation(msgAlreadyVerified)
	}
	if caller.OTP != "" && caller.OTPExpires != nil && s.now().After(*caller.OTPExpires) {
		return nil, errs.Validation("OTP has expired. Please request a new OTP.")
	}
	if !otpMatches(caller.OTP, in.OTP, caller.OTPExpires, s.now()) {
		return nil, errs.Validation("Invalid OTP")
	}
	if err := s.users.MarkVerified(ctx, caller.ID); err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	u, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	return u, nil
}

// ResendOTP replaces the verification code. Unlike registration, a mail
// failure is reported since delivering the code is the whole operation.
func (s *AuthService) ResendOTP(ctx context.Context, caller *models.User) error {
	if caller.IsVerified {
		return errs.Validation(msgAlreadyVerified)
	}
	otp, err := auth.GenerateOTP(otpLength)
	if err != nil {
		return errs.Upstream(msgStoreFailure, err)
	}
	if err := s.users.SetVerificationOTP(ctx, caller.ID, otp, s.now().Add(s.cfg.VerifyOTPTTL)); err != nil {
		return storeErr(err, msgNoUser)
	}
	if err := s.sendVerification(ctx, caller, otp); err != nil {
		return errs.Upstream("Failed to send the verification email", err)
	}
	return nil
}

func (s *AuthService) ForgetPassword(ctx context.Context, in ForgetPasswordInput) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.check(in); err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return storeErr(err, msgNoEmailUser)
	}
	otp, err := auth.GenerateOTP(otpLength)
	if err != nil {
		return errs.Upstream(msgStoreFailure, err)
	}
	if err := s.users.SetResetOTP(ctx, u.ID, otp, s.now().Add(s.cfg.ResetOTPTTL)); err != nil {
		return storeErr(err, msgNoEmailUser)
	}
	subject, body := mailer.ResetPasswordEmail(u.Username, otp)
	if err := s.mail.Send(ctx, u.Email, subject, body); err != nil {
		return errs.Upstream("Failed to send the password reset email", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.OTP = strings.TrimSpace(in.OTP)
	if err := s.check(in); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeErr(err, msgNoEmailUser)
	}
	if !otpMatches(u.ResetPasswordOTP, in.OTP, u.ResetPasswordOTPExpires, s.now()) {
		return nil, errs.Validation("Invalid or expired OTP")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errs.Upstream(msgStoreFailure, err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return nil, storeErr(err, msgNoEmailUser)
	}
	u.Password = hash
	u.ResetPasswordOTP = ""
	u.ResetPasswordOTPExpires = nil
	return s.issue(u)
}

func (s *AuthService) ChangePassword(ctx context.Context, caller *models.User, in ChangePasswordInput) (*Session, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if !s.hasher.Compare(caller.Password, in.CurrentPassword) {
		return nil, errs.Auth("Your current password is incorrect")
	}
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, errs.Upstream(msgStoreFailure, err)
	}
	if err := s.users.SetPassword(ctx, caller.ID, hash); err != nil {
		return nil, storeErr(err, msgNoUser)
	}
	caller.Password = hash
	return s.issue(caller)
}
