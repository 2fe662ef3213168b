package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// smtpServer is a global variable that stores the address of the SMTP server used to send emails.
var smtpServer string

// auth is a global variable that holds the smtp.Auth credentials for the SMTP server.
// It is initialized by the smtp.PlainAuth function with the username and password of the sender.
var auth smtp.Auth

// fromEmail is a global variable that stores the sender address used in the "From" header of outgoing emails.
var fromEmail string

// InitEmailService is a function that initializes the email service by establishing an SMTP connection
// to a specified email server.
// It accepts two arguments:
// - sender: A string containing the email address of the sender. This is used as the "From" address in the emails that are sent.
// - password: A string containing the password of the sender's email account.
//
// The function sets the SMTP server address and sender, builds the plain auth credentials, and dials
// the server once to verify the connection is usable.
//
// If successful in establishing a connection, the function returns true.
// If an error occurs during any step of the process, it returns false and the error.
func InitEmailService(sender, password string) (bool, error) {
	smtpServer = "smtp.gmail.com:587"
	fromEmail = sender

	auth = smtp.PlainAuth(
		"",
		sender,
		password,
		"smtp.gmail.com",
	)

	c, err := smtp.Dial(smtpServer)
	if err != nil {
		return false, fmt.Errorf("cannot connect to the SMTP server: %v", err)
	}

	err = c.Close()
	if err != nil {
		return false, fmt.Errorf("cannot close the SMTP connection: %v", err)
	}

	return true, nil
}

// send assembles an HTML email with the given subject and body and delivers it
// over the configured SMTP connection.
func send(to, subject, body string) error {
	headers := map[string]string{
		"From":         fromEmail,
		"To":           to,
		"Subject":      subject,
		"MIME-version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	var message strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&message, "%s: %s\r\n", k, v)
	}
	message.WriteString("\r\n" + body)

	err := smtp.SendMail(
		smtpServer,
		auth,
		fromEmail,
		[]string{to},
		[]byte(message.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendConfirmationEmail sends the account confirmation token to a new user.
// It accepts two arguments:
// - to: A string containing the email address of the recipient.
// - token: A string containing the confirmation token to be sent to the recipient.
func SendConfirmationEmail(to, token string) error {
	body := `
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h1>Hello,</h1>
		<p>Here is your confirmation token: <strong>` + token + `</strong></p>
		<p>Submit it to the <code>/auth/confirm</code> endpoint to verify your email address, mind the case sensitivity.</p>
	</div>
	`
	return send(to, "Your Confirmation Token", body)
}

// SendMissionReminder tells a user their daily mission has been assembled.
// It accepts five arguments:
// - to: A string containing the email address of the recipient.
// - username: The recipient's display name.
// - missionDate: The mission's date string.
// - taskCount: The number of tasks assigned.
// - estimatedMinutes: The total estimated minutes of the mission.
func SendMissionReminder(to, username, missionDate string, taskCount, estimatedMinutes int) error {
	body := fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h1>Good Morning, %s!</h1>
		<p>Your daily learning mission for <strong>%s</strong> is ready.</p>
		<div style="background: #f3f4f6; padding: 20px; border-radius: 8px;">
			<h2 style="margin-top: 0;">Today's Mission</h2>
			<p><strong>%d</strong> tasks</p>
			<p><strong>%d</strong> minutes total</p>
		</div>
		<p>Complete your mission to earn XP, level up, and keep your streak alive.</p>
	</div>
	`, username, missionDate, taskCount, estimatedMinutes)
	return send(to, "Your Daily Mission is Ready!", body)
}

// SendStreakWarning warns a user that their streak breaks at the end of their
// local day unless they complete a task.
// It accepts three arguments:
// - to: A string containing the email address of the recipient.
// - username: The recipient's display name.
// - currentStreak: The length of the streak at risk.
func SendStreakWarning(to, username string, currentStreak int) error {
	body := fmt.Sprintf(`
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h1>Streak Alert!</h1>
		<p>Hey %s,</p>
		<p>You're about to lose your <strong>%d-day streak</strong>!</p>
		<p>You haven't completed today's mission yet. Complete at least one task
		before the end of your day to keep it going.</p>
	</div>
	`, username, currentStreak)
	return send(to, fmt.Sprintf("Don't Break Your %d-Day Streak!", currentStreak), body)
}
