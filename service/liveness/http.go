package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

const (
	maxJSONResponseBytes     = 1 << 20
	maxArtifactResponseBytes = 64 << 20
	tracerName               = "github.com/khaledhikmat/vs-liveness/service/liveness"
)

type httpService struct {
	BaseURL          string
	HTTPClient       *http.Client
	RequestTimeout   time.Duration
	// Larger artifacts are rejected rather than truncated
	MaxArtifactBytes int64
	Now              func() time.Time
	tracer           trace.Tracer
}

func NewHTTP(cfgSvc config.IService, client *http.Client) IService {
	return &httpService{
		BaseURL:          cfgSvc.GetServiceBaseURL(),
		HTTPClient:       client,
		RequestTimeout:   cfgSvc.GetRequestTimeout(),
		MaxArtifactBytes: maxArtifactResponseBytes,
		Now:              time.Now,
		tracer:           otel.Tracer(tracerName),
	}
}

func (svc *httpService) StartSession(ctx context.Context) (string, error) {
	ctx, span := svc.tracer.Start(ctx, "liveness.StartSession")
	defer span.End()

	resp, err := svc.do(ctx, http.MethodPost, "/start-session", nil)
	if err != nil {
		recordError(span, err)
		return "", fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		err := fmt.Errorf("%w: status %d", ErrStartFailed, resp.StatusCode)
		recordError(span, err)
		return "", err
	}

	var payload StartResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&payload); err != nil {
		recordError(span, err)
		return "", fmt.Errorf("%w: decode response: %w", ErrStartFailed, err)
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		err := fmt.Errorf("%w: response missing session_id", ErrStartFailed)
		recordError(span, err)
		return "", err
	}

	span.SetAttributes(attribute.String("liveness.session_id", payload.SessionID))
	return payload.SessionID, nil
}

func (svc *httpService) StopSession(ctx context.Context, sessionID string, keep bool) (string, error) {
	ctx, span := svc.tracer.Start(ctx, "liveness.StopSession", trace.WithAttributes(
		attribute.String("liveness.session_id", sessionID),
		attribute.Bool("liveness.keep", keep),
	))
	defer span.End()

	path := fmt.Sprintf("/stop-session/%s?keep=%s", url.PathEscape(sessionID), strconv.FormatBool(keep))
	resp, err := svc.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		recordError(span, err)
		return "", xerrors.Errorf("stop session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		err := xerrors.Errorf("stop session: status %d", resp.StatusCode)
		recordError(span, err)
		return "", err
	}

	var payload StopResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&payload); err != nil {
		recordError(span, err)
		return "", xerrors.Errorf("stop session: decode response: %w", err)
	}
	return payload.Message, nil
}

func (svc *httpService) SessionStatus(ctx context.Context, sessionID string) (model.SessionStatus, error) {
	ctx, span := svc.tracer.Start(ctx, "liveness.SessionStatus", trace.WithAttributes(
		attribute.String("liveness.session_id", sessionID),
	))
	defer span.End()

	resp, err := svc.do(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID), nil)
	if err != nil {
		recordError(span, err)
		return model.SessionStatus{}, xerrors.Errorf("session status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		err := xerrors.Errorf("session status: status %d", resp.StatusCode)
		recordError(span, err)
		return model.SessionStatus{}, err
	}

	var status model.SessionStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&status); err != nil {
		recordError(span, err)
		return model.SessionStatus{}, xerrors.Errorf("session status: decode response: %w", err)
	}
	return status, nil
}

// FetchResults performs exactly one download attempt. Polling belongs to the caller.
func (svc *httpService) FetchResults(ctx context.Context, sessionID string) (model.ResultArtifact, error) {
	ctx, span := svc.tracer.Start(ctx, "liveness.FetchResults", trace.WithAttributes(
		attribute.String("liveness.session_id", sessionID),
	))
	defer span.End()

	resp, err := svc.do(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/results", nil)
	if err != nil {
		recordError(span, err)
		return model.ResultArtifact{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode == http.StatusBadRequest {
		return model.ResultArtifact{}, ErrNotReady
	}
	if !isSuccess(resp.StatusCode) {
		err := fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
		recordError(span, err)
		return model.ResultArtifact{}, err
	}

	limit := svc.MaxArtifactBytes
	if limit <= 0 {
		limit = maxArtifactResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		recordError(span, err)
		return model.ResultArtifact{}, fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if int64(len(body)) > limit {
		err := fmt.Errorf("%w: artifact exceeds %d bytes", ErrFetchFailed, limit)
		recordError(span, err)
		return model.ResultArtifact{}, err
	}

	return model.ResultArtifact{
		Filename: artifactFilename(resp.Header.Get("Content-Disposition"), svc.Now()),
		Bytes:    body,
	}, nil
}

func (svc *httpService) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	endpoint, err := buildURL(svc.BaseURL, path)
	if err != nil {
		return nil, err
	}

	// The request context must outlive this function because the caller
	// reads the body; the cancel is bound to the body close.
	reqCtx, cancel := svc.requestContext(ctx)
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, body)
	if err != nil {
		cancel()
		return nil, xerrors.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := svc.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, xerrors.Errorf("%s %s: %w", method, path, err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (svc *httpService) httpClient() *http.Client {
	if svc.HTTPClient != nil {
		return svc.HTTPClient
	}
	return http.DefaultClient
}

func (svc *httpService) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return context.WithCancel(ctx)
	}

	timeout := svc.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// artifactFilename prefers the server supplied name and falls back to a
// timestamped spreadsheet name.
func artifactFilename(disposition string, now time.Time) string {
	fallback := fmt.Sprintf("LivenessResults_%s.xlsx", now.Format("20060102_150405"))
	if disposition == "" {
		return fallback
	}

	name := ""
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = params["filename"]
	} else if idx := strings.Index(disposition, "filename="); idx >= 0 {
		name = strings.Trim(strings.TrimSpace(disposition[idx+len("filename="):]), `"`)
	}

	// Never let the server pick a directory
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return fallback
	}
	return name
}

func buildURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", xerrors.New("service base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", xerrors.Errorf("parse service base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", xerrors.New("service base url must use http or https")
	}
	if parsed.Host == "" {
		return "", xerrors.New("service base url host is required")
	}

	return strings.TrimRight(parsed.String(), "/") + path, nil
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
