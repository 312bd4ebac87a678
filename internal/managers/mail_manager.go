// Package managers handles the sending of emails for account verification and password
// reset using the Mailgun service and the Hermes package for email formatting.
package managers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/matcornic/hermes/v2"
	log "github.com/sirupsen/logrus"

	"github.com/verso-cms/server-verso/internal/config"
)

// MailMgr is an interface that outlines the contract for email management.
// It includes methods for sending verification and password reset emails.
type MailMgr interface {
	SendVerificationMail(email, name, token string) error
	SendPasswordResetMail(email, name, token string) error
}

// MailManager is a concrete implementation of the MailMgr interface.
// It uses the Mailgun service for sending emails and the Hermes package for formatting emails.
type MailManager struct {
	Hermes      *hermes.Hermes
	Mailgun     *mailgun.MailgunImpl
	from        string
	frontendURL string
	environment string
}

// SendVerificationMail sends a mail with the token required to verify the
// account. Outside production the mail is skipped.
func (mm *MailManager) SendVerificationMail(email, name, token string) error {
	link := fmt.Sprintf("%s/auth/verify?email=%s&token=%s", mm.frontendURL, url.QueryEscape(email), token)

	mailBody := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				"Welcome to Verso! We're very excited to have you on board.",
				"If you have any questions, feel free to reach out to us at any time via team@mail.verso-cms.tech.",
			},
			Actions: []hermes.Action{
				{
					Instructions: "To verify your email address, please click the button below. The link is valid for 15 minutes.",
					Button: hermes.Button{
						Text: "Verify your account",
						Link: link,
					},
				},
			},
			Outros: []string{
				"If you did not sign up for Verso, you can safely ignore this mail.",
			},
		},
	}

	return mm.send(email, "Verify your account", mailBody)
}

// SendPasswordResetMail sends a mail with the token required to set a new
// password. Outside production the mail is skipped.
func (mm *MailManager) SendPasswordResetMail(email, name, token string) error {
	link := fmt.Sprintf("%s/auth/reset-password?email=%s&token=%s", mm.frontendURL, url.QueryEscape(email), token)

	mailBody := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				"You have received this email because a password reset request for your account was received.",
			},
			Actions: []hermes.Action{
				{
					Instructions: "Click the button below to reset your password. The link is valid for 15 minutes.",
					Button: hermes.Button{
						Text: "Reset your password",
						Link: link,
					},
				},
			},
			Outros: []string{
				"If you did not request a password reset, no further action is required on your part.",
			},
		},
	}

	return mm.send(email, "Reset your password", mailBody)
}

func (mm *MailManager) send(email, subject string, mailBody hermes.Email) error {
	if mm.environment != "production" {
		log.Info("Skipping mail in development mode")
		return nil
	}

	emailBody, err := mm.Hermes.GenerateHTML(mailBody)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(2*time.Second))
	defer cancel()

	message := mm.Mailgun.NewMessage(mm.from, subject, "", email)
	message.SetHtml(emailBody)
	if _, _, err = mm.Mailgun.Send(ctx, message); err != nil {
		log.Warning("Error sending mail: " + err.Error())
		return err
	}
	log.Debug("Mail sent to ", email)

	return nil
}

// NewMailManager initializes a new MailManager instance with configured Mailgun and Hermes settings.
func NewMailManager(cfg *config.Config) MailMgr {
	log.Info("Initializing mail manager")

	if cfg.Environment != "production" {
		log.Info("Running in development mode, email will not be sent to users")
	}

	mailgunInstance := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	mailgunInstance.SetAPIBase(mailgun.APIBaseEU)

	return &MailManager{
		Hermes: &hermes.Hermes{
			Theme:         new(hermes.Default),
			TextDirection: hermes.TDLeftToRight,
			Product: hermes.Product{
				Name:        "Verso",
				Link:        cfg.FrontendURL,
				Copyright:   "© Verso CMS",
				TroubleText: "If you’re having trouble with the button '{ACTION}', copy and paste the URL below into your web browser.",
			},
		},
		Mailgun:     mailgunInstance,
		from:        cfg.MailFrom,
		frontendURL: cfg.FrontendURL,
		environment: cfg.Environment,
	}
}
