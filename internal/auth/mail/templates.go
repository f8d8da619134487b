package mail

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

var verifyHTML = template.Must(template.New("verify").Parse(`<html>
<body style="font-family: sans-serif;">
  <h2>Confirm your email address</h2>
  <p>Thanks for signing up. Click the link below to verify your email.
     The link expires in 45 minutes.</p>
  <p><a href="{{.URL}}">Verify email</a></p>
  <p>If you did not create an account, you can ignore this message.</p>
</body>
</html>`))

var resetHTML = template.Must(template.New("reset").Parse(`<html>
<body style="font-family: sans-serif;">
  <h2>Reset your password</h2>
  <p>We received a request to reset your password. Click the link below to
     choose a new one. The link expires in 1 hour.</p>
  <p><a href="{{.URL}}">Reset password</a></p>
  <p>If you did not request this, you can ignore this message.</p>
</body>
</html>`))

// VerifyEmailMessage renders the email sent after registration. The link
// embeds the raw verification code against the configured app origin.
func VerifyEmailMessage(to, origin, code string) Message {
	link := fmt.Sprintf("%s/confirm-account?code=%s", origin, url.QueryEscape(code))
	return Message{
		To:      to,
		Subject: "Confirm your email address",
		Text: "Thanks for signing up. Verify your email within 45 minutes:\n\n" +
			link + "\n\nIf you did not create an account, ignore this message.\n",
		HTML: render(verifyHTML, link),
	}
}

// PasswordResetMessage renders the forgot-password email. The link embeds
// the code and its expiry instant so the frontend can show a countdown.
func PasswordResetMessage(to, origin, code string, expiresAt time.Time) Message {
	link := fmt.Sprintf("%s/reset-password?code=%s&exp=%s",
		origin,
		url.QueryEscape(code),
		url.QueryEscape(expiresAt.UTC().Format(time.RFC3339)),
	)
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text: "We received a request to reset your password. The link expires in 1 hour:\n\n" +
			link + "\n\nIf you did not request this, ignore this message.\n",
		HTML: render(resetHTML, link),
	}
}

func render(t *template.Template, link string) string {
	var sb strings.Builder
	// Templates are compile-time constants; execution cannot fail on them.
	_ = t.Execute(&sb, struct{ URL string }{URL: link})
	return sb.String()
}
