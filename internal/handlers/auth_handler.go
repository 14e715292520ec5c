package handlers

import (
	"time"

	"github.com/fathima-sithara/snapshare/internal/middleware"
	"github.com/fathima-sithara/snapshare/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    *services.AuthService
	cookie CookieConfig
}

func NewAuthHandler(svc *services.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, value string, expires time.Time) {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.cookie.Secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: sameSite,
	})
}

// sendSession sets the session cookie and returns the token in the body too,
// for clients that cannot hold cookies.
func (h *AuthHandler) sendSession(c *fiber.Ctx, status int, msg string, s *services.Session) error {
	h.setCookie(c, s.Token, s.Claims.ExpiresAt.Time)
	return JSONSuccess(c, status, fiber.Map{
		"message": msg,
		"token":   s.Token,
		"data":    fiber.Map{"user": s.User},
	})
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	s, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, fiber.StatusCreated, "User registered successfully", s)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	s, err := h.svc.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, fiber.StatusOK, "Login successful", s)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.UserContext(), middleware.CurrentClaims(c)); err != nil {
		return err
	}
	h.setCookie(c, "loggedout", time.Now().Add(-time.Hour))
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var in services.VerifyInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.svc.VerifyAccount(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": "Email has been verified",
		"data":    fiber.Map{"user": user},
	})
}

func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	if err := h.svc.ResendOTP(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "A new OTP has been sent to your email"})
}

func (h *AuthHandler) ForgetPassword(c *fiber.Ctx) error {
	var in services.ForgetPasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := h.svc.ForgetPassword(c.UserContext(), in); err != nil {
		return err
	}
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "Password reset OTP sent to your email"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in services.ResetPasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	s, err := h.svc.ResetPassword(c.UserContext(), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, fiber.StatusOK, "Password reset successfully", s)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in services.ChangePasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	s, err := h.svc.ChangePassword(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, fiber.StatusOK, "Password changed successfully", s)
}

func (h *AuthHandler) Authenticated(c *fiber.Ctx) error {
	return JSONSuccess(c, fiber.StatusOK, fiber.Map{"user": middleware.CurrentUser(c)})
}
