package services

import (
	"fmt"
	"log"

	"github.com/anees/crimewatch-api/internal/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// MailService sends transactional email through SES.
type MailService struct {
	client *ses.SES
	from   string
}

// Global mail service instance
var Mail *MailService

// InitMail initializes the SES mailer. When AWS credentials or the sender
// address are missing the mailer runs in log-only mode so local development
// works without an AWS account.
func InitMail(cfg *config.Config) error {
	if cfg.AWSAccessKeyID == "" || cfg.EmailFrom == "" {
		log.Println("SES: Not configured, password reset emails will be logged only")
		Mail = &MailService{client: nil}
		return nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretKey,
			"",
		),
	})
	if err != nil {
		log.Printf("SES: Failed to create AWS session: %v", err)
		Mail = &MailService{client: nil}
		return nil
	}

	Mail = &MailService{client: ses.New(sess), from: cfg.EmailFrom}
	log.Println("SES: Email enabled")
	return nil
}

// SendPasswordResetEmail delivers the OTP for a password reset request.
func (m *MailService) SendPasswordResetEmail(to, otp string) error {
	if m.client == nil {
		log.Printf("SES (log-only): password reset OTP for %s is %s", to, otp)
		return nil
	}

	htmlBody := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; max-width: 600px; margin: 0 auto; border: 1px solid #ddd; border-radius: 5px;">
		  <h2 style="color: #333;">Password Reset Request</h2>
		  <p>You requested to reset your password for the Crime Report System.</p>
		  <p>Your OTP code is: <strong style="font-size: 18px; letter-spacing: 2px;">%s</strong></p>
		  <p>This code will expire in 10 minutes.</p>
		  <p>If you did not request this password reset, please ignore this email.</p>
		</div>`, otp)

	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{
				Data: aws.String("Password Reset - Crime Report System"),
			},
			Body: &ses.Body{
				Html: &ses.Content{Data: aws.String(htmlBody)},
			},
		},
	}

	if _, err := m.client.SendEmail(input); err != nil {
		log.Printf("SES: Failed to send password reset email to %s: %v", to, err)
		return err
	}
	return nil
}
