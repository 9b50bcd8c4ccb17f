package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	gobreaker "github.com/sony/gobreaker/v2"

	"mathwizard/internal/config"
	"mathwizard/internal/logging"
	"mathwizard/internal/metrics"
)

// Message is a rendered email ready for delivery
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers a single message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailService renders verification emails and delivers them through a Mailer
// guarded by a circuit breaker
type EmailService struct {
	mailer      Mailer
	provider    string
	frontendURL string
	appName     string
	breaker     *gobreaker.CircuitBreaker[struct{}]
}

// NewEmailService creates an email service for the configured provider
func NewEmailService(ctx context.Context, cfg config.EmailConfig, frontendURL string) (*EmailService, error) {
	var mailer Mailer
	switch cfg.Provider {
	case "ses":
		m, err := newSESMailer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mailer = m
	case "sendgrid":
		mailer = newSendGridMailer(cfg)
	case "log", "":
		logging.Warn().Msg("Email provider is 'log': verification emails will be logged, not sent")
		mailer = logMailer{}
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}

	logging.Info().Str("provider", cfg.Provider).Str("from", cfg.From).Msg("Email service enabled")
	return NewEmailServiceWithMailer(cfg.Provider, mailer, frontendURL, cfg.FromName), nil
}

// NewEmailServiceWithMailer creates an email service around an existing mailer
func NewEmailServiceWithMailer(provider string, mailer Mailer, frontendURL, appName string) *EmailService {
	if appName == "" {
		appName = "MathWizard"
	}
	name := "email-" + provider
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &EmailService{
		mailer:      mailer,
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		appName:     appName,
		breaker:     cb,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// VerificationLink builds the frontend link that consumes a verification token
func (s *EmailService) VerificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
}

// SendVerificationEmail sends the verification link and the 6-digit code
func (s *EmailService) SendVerificationEmail(ctx context.Context, toEmail, toName, token, code string) error {
	link := s.VerificationLink(token)
	subject := fmt.Sprintf("Verify your %s account", s.appName)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #6a4ce2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #6a4ce2; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.code { font-size: 28px; letter-spacing: 6px; font-weight: bold; text-align: center; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to %s!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Please confirm your email address to finish setting up your account.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Verify Email</a>
			</p>
			<p>Or enter this code in the app:</p>
			<p class="code">%s</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
		</div>
		<div class="footer">
			<p>This is an automated email from %s. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, s.appName, toName, link, code, link, s.appName)

	textBody := fmt.Sprintf(`Hi %s,

Please confirm your email address to finish setting up your %s account.

Verify using this link:
%s

Or enter this code in the app: %s

---
This is an automated email from %s. Please do not reply.
`, toName, s.appName, link, code, s.appName)

	return s.send(ctx, Message{To: toEmail, ToName: toName, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
}

func (s *EmailService) send(ctx context.Context, msg Message) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.mailer.Send(ctx, msg)
	})
	metrics.RecordEmail(s.provider, err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("email delivery suspended: %w", err)
		}
		return err
	}

	logging.Ctx(ctx).Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// sesMailer sends through Amazon SES
type sesMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

func newSESMailer(ctx context.Context, cfg config.EmailConfig) (*sesMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	logging.Debug().Str("region", cfg.AWSRegion).Msg("SES client created")

	return &sesMailer{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.From,
		fromName:  cfg.FromName,
	}, nil
}

func (m *sesMailer) Send(ctx context.Context, msg Message) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	if result.MessageId != nil {
		logging.Debug().Str("message_id", *result.MessageId).Msg("SES accepted message")
	}
	return nil
}

// sendGridMailer sends through the SendGrid v3 API
type sendGridMailer struct {
	key  string
	from *sgmail.Email
}

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

func newSendGridMailer(cfg config.EmailConfig) *sendGridMailer {
	return &sendGridMailer{
		key:  cfg.SendGridAPIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.From),
	}
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	body := sgmail.NewSingleEmail(m.from, msg.Subject, sgmail.NewEmail(msg.ToName, msg.To), msg.TextBody, msg.HTMLBody)

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, sendGridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(body)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email to %s: status %d: %s", msg.To, res.StatusCode, res.Body)
	}
	return nil
}

// logMailer writes messages to the log instead of delivering them
type logMailer struct{}

func (logMailer) Send(ctx context.Context, msg Message) error {
	logging.Ctx(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("Email not sent (log provider)")
	return nil
}
