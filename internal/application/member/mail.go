package member

import (
	"fmt"
	"html"
)

const (
	pathEmailAuth     = "/member/email-auth"
	pathResetPassword = "/member/reset/password"
)

func activationMail(to, name, link string) Mail {
	return Mail{
		To:      to,
		Subject: "Welcome to fastlms - confirm your email",
		HTMLBody: renderLinkHTML(
			"Welcome, "+name,
			"Thanks for signing up. Click the link below to activate your account.",
			"Complete sign-up",
			link,
		),
		TextBody: fmt.Sprintf("Activate your account by opening this link:\n\n%s\n", link),
	}
}

func resetPasswordMail(to, name, link string) Mail {
	return Mail{
		To:      to,
		Subject: "fastlms password reset",
		HTMLBody: renderLinkHTML(
			"Password reset for "+name,
			"We received a request to reset your password. The link below is valid for a limited time.",
			"Reset password",
			link,
		),
		TextBody: fmt.Sprintf("Reset your password by opening this link:\n\n%s\n", link),
	}
}

func renderLinkHTML(title, intro, buttonText, link string) string {
	escLink := html.EscapeString(link)

	return `<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <h2>` + html.EscapeString(title) + `</h2>
    <p>` + html.EscapeString(intro) + `</p>
    <div><a target="_blank" href="` + escLink + `">` + html.EscapeString(buttonText) + `</a></div>
    <p style="color:#555; font-size:12px;">
      If the link doesn't work, open this address:<br/>` + escLink + `
    </p>
  </body>
</html>`
}
