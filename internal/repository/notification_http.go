package repository

import (
	"context"
	"fmt"
	"strings"

	"AlertEngine/internal/domain/models"
	domrepo "AlertEngine/internal/domain/repository"
	"AlertEngine/pkg/config"
	xhttp "AlertEngine/pkg/http"
	applogger "AlertEngine/pkg/logger"
)

// TokenSource yields a bearer token or "".
type TokenSource interface {
	Token(ctx context.Context) string
}

type alertResponse struct {
	Accepted    bool   `json:"accepted"`
	JobID       string `json:"jobId"`
	ScheduledAt string `json:"scheduledAt"`
	Reason      string `json:"reason"`
}

// HTTPNotificationSink posts alert envelopes to the notification service.
type HTTPNotificationSink struct {
	client      *xhttp.Client
	url         string
	templateKey string
	tokens      TokenSource
	l           *applogger.Logger
}

var _ domrepo.NotificationSink = (*HTTPNotificationSink)(nil)

func NewHTTPNotificationSink(cfg *config.Config, tokens TokenSource, l *applogger.Logger) *HTTPNotificationSink {
	n := cfg.Notification
	path := n.AlertPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &HTTPNotificationSink{
		client:      xhttp.NewClient(xhttp.WithTimeout(n.Timeout)),
		url:         strings.TrimSuffix(n.BaseURL, "/") + path,
		templateKey: n.TemplateKey,
		tokens:      tokens,
		l:           l,
	}
}

func (s *HTTPNotificationSink) Send(ctx context.Context, e *models.AlertEvent) error {
	env, err := newEnvelope(e, s.templateKey)
	if err != nil {
		return err
	}

	headers := map[string]string{"Accept": "application/json"}
	if tok := s.tokens.Token(ctx); tok != "" {
		headers["Authorization"] = "Bearer " + tok
	}

	s.l.Debug("notification-sending",
		applogger.String("user_id", env.UserID),
		applogger.String("fingerprint", env.Fingerprint),
		applogger.String("template_key", env.TemplateKey),
		applogger.String("severity", string(env.Severity)))

	var res alertResponse
	err = s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     s.url,
		Headers: headers,
		Body:    env,
	}, &res)
	if err != nil {
		return fmt.Errorf("post alert notification: %w", err)
	}
	if !res.Accepted {
		return &RejectedError{Reason: res.Reason}
	}

	s.l.Debug("notification-enqueued",
		applogger.String("fingerprint", env.Fingerprint),
		applogger.String("job_id", res.JobID),
		applogger.String("scheduled_at", res.ScheduledAt))
	return nil
}
