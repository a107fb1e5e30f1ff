package email

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	SubjectOTP          = "Your PrepMaster verification code"
	SubjectVerification = "Email Verification"
)

type otpData struct {
	Name    string
	Code    string
	Minutes int
	Year    int
}

type verificationData struct {
	Name string
	URL  string
	Year int
}

// OTPMessage renders the one-time code email.
func OTPMessage(to, name, code string, ttl time.Duration, now time.Time) (Message, error) {
	return render(to, SubjectOTP, "otp.html", otpData{Name: name, Code: code, Minutes: int(ttl.Minutes()), Year: now.Year()})
}

// VerificationMessage renders the verification-link email.
func VerificationMessage(to, name, url string, now time.Time) (Message, error) {
	return render(to, SubjectVerification, "verification.html", verificationData{Name: name, URL: url, Year: now.Year()})
}

func render(to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}
