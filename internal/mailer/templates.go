package mailer

import (
	"fmt"
	"html"
)

func VerificationEmail(username, otp string) (string, string) {
	return "Verify your Snapshare account", fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 24 hours.</p>",
		html.EscapeString(username), otp)
}

func ResetPasswordEmail(username, otp string) (string, string) {
	return "Reset your Snapshare password", fmt.Sprintf(
		"<p>Hi %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in 5 minutes.</p>",
		html.EscapeString(username), otp)
}
