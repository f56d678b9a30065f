package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer delivers a named template to a recipient. Delivery itself is
// a collaborator; callers only choose the template and its data.
type Mailer interface {
	Send(ctx context.Context, to, subject, templateName string, data map[string]any) error
}

const resetPasswordTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; margin: 20px 0; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Reset Your Password</h1>
        </div>
        <p>We received a request to reset the password for your account.</p>
        <p>Enter this verification code to continue:</p>
        <div class="code">{{.Code}}</div>
        <p>Or open this link in your browser:</p>
        <p><a href="{{.Link}}" class="button">Reset Password</a></p>
        <p>This code expires in {{.ExpiresInMinutes}} minutes.</p>
        <p><strong>Didn't request this?</strong><br>
        You can ignore this email. Your password will not change.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`

// emailTemplates maps template names to parsed bodies. Unknown names
// fail at send time rather than at startup.
var emailTemplates = map[string]*template.Template{
	"reset-password": template.Must(template.New("reset-password").Parse(resetPasswordTemplate)),
}

// AWSSESMailer sends templated emails using AWS SES
type AWSSESMailer struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESMailer creates a new AWS SES mailer
func NewAWSSESMailer(region, fromAddress string, logger *slog.Logger) (*AWSSESMailer, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Send renders the named template with data and delivers it via SES.
func (m *AWSSESMailer) Send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	tmpl, ok := emailTemplates[templateName]
	if !ok {
		return fmt.Errorf("unknown email template: %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template %s: %w", templateName, err)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(body.String()),
				},
			},
		},
	}

	result, err := m.sesClient.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send email via SES",
			slog.String("template", templateName),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("template", templateName),
		slog.String("message_id", *result.MessageId))

	return nil
}
