package utils

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Email is a rendered message ready for a mail provider.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

// HTML wrapper shared by every portal email
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #0B3D91; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 22px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B1B1B; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #0B3D91; margin: 20px 0; }
			.reason { color: #DC3545; font-weight: bold; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>DOCUMENT SERVICES PORTAL</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				This is an automated message. Please do not reply.
			</div>
		</div>
	</body>
	</html>
	`, html.EscapeString(title), bodyContent)
}

// statusHeadline maps an application status to the line shown to the applicant.
var statusHeadline = map[string]string{
	"Pending":              "We have received your application.",
	"Approved":             "Your application has been approved and is being processed.",
	"Rejected":             "Your application was rejected.",
	"Uploaded":             "Your certificate has been uploaded and is awaiting final review.",
	"Distributor Rejected": "Your application could not be processed by the assigned office.",
	"Completed":            "Your application is complete. Your certificate is ready to download.",
}

// ApplicationStatusEmail is sent to the applicant after every status change.
func ApplicationStatusEmail(name, applicationID, status, reason string) Email {
	headline, ok := statusHeadline[status]
	if !ok {
		headline = "The status of your application has changed."
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<p>Dear %s,</p><p>%s</p>`, html.EscapeString(name), headline)
	fmt.Fprintf(&b, `<div class="info-box"><strong>Application:</strong> %s<br><strong>Status:</strong> %s</div>`,
		html.EscapeString(applicationID), html.EscapeString(status))
	if reason != "" {
		fmt.Fprintf(&b, `<p class="reason">Reason: %s</p>`, html.EscapeString(reason))
	}

	text := fmt.Sprintf("Application %s is now %s. %s", applicationID, status, headline)
	if reason != "" {
		text += " Reason: " + reason
	}

	return Email{
		Subject: fmt.Sprintf("Application %s: %s", applicationID, status),
		Text:    text,
		HTML:    getEmailTemplate("Application Update", b.String()),
	}
}

// AssignmentEmail tells a distributor an application was routed to them.
func AssignmentEmail(distributorName, applicationID, category string) Email {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Application <strong>%s</strong> (%s) has been assigned to you.</p>
		<p>Please verify the submitted documents and upload the certificate from your dashboard.</p>
	`, html.EscapeString(distributorName), html.EscapeString(applicationID), html.EscapeString(category))

	return Email{
		Subject: "New assignment: " + applicationID,
		Text:    fmt.Sprintf("Application %s (%s) has been assigned to you.", applicationID, category),
		HTML:    getEmailTemplate("New Assignment", body),
	}
}

// ErrorRequestEmail is sent to the applicant when a correction request moves.
func ErrorRequestEmail(name, applicationID, status, reason string) Email {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your correction request for application <strong>%s</strong> is now <strong>%s</strong>.</p>
	`, html.EscapeString(name), html.EscapeString(applicationID), html.EscapeString(status))
	if reason != "" {
		body += fmt.Sprintf(`<p class="reason">Reason: %s</p>`, html.EscapeString(reason))
	}

	return Email{
		Subject: fmt.Sprintf("Correction request for %s: %s", applicationID, status),
		Text:    fmt.Sprintf("Your correction request for %s is now %s.", applicationID, status),
		HTML:    getEmailTemplate("Correction Request Update", body),
	}
}

// ErrorRequestAssignmentEmail tells a distributor a correction request was routed to them.
func ErrorRequestAssignmentEmail(distributorName, applicationID string) Email {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>A correction request for application <strong>%s</strong> has been routed to you.</p>
		<p>Please review the request and upload the corrected certificate from your dashboard.</p>
	`, html.EscapeString(distributorName), html.EscapeString(applicationID))

	return Email{
		Subject: "Correction request assigned: " + applicationID,
		Text:    fmt.Sprintf("A correction request for %s has been routed to you.", applicationID),
		HTML:    getEmailTemplate("Correction Request Assigned", body),
	}
}

// WelcomeEmail greets a newly registered user.
func WelcomeEmail(name, role string) Email {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your %s account has been created.</p>
		<p>Complete your profile with your phone number, address and an identity document before submitting work.</p>
	`, html.EscapeString(name), strings.ToLower(role))

	return Email{
		Subject: "Welcome to the Document Services Portal",
		Text:    "Your account has been created. Complete your profile to get started.",
		HTML:    getEmailTemplate("Welcome Onboard!", body),
	}
}

// PendingDigestLine is one row of the daily reminder digest.
type PendingDigestLine struct {
	ApplicationID string
	Status        string
	Since         time.Time
}

// PendingDigestEmail lists applications that have not moved for a while.
func PendingDigestEmail(name string, lines []PendingDigestLine) Email {
	var rows strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&rows, `<li><strong>%s</strong> %s since %s</li>`,
			html.EscapeString(l.ApplicationID), html.EscapeString(l.Status), l.Since.Format("02 Jan 2006"))
	}
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>The following applications are waiting for action:</p>
		<ul>%s</ul>
	`, html.EscapeString(name), rows.String())

	return Email{
		Subject: fmt.Sprintf("%d applications awaiting action", len(lines)),
		Text:    fmt.Sprintf("%d applications are waiting for action.", len(lines)),
		HTML:    getEmailTemplate("Pending Work", body),
	}
}
