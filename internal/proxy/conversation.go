package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"chatgw/internal/arkose"
	"chatgw/internal/core"
	"chatgw/internal/puid"
	"chatgw/internal/sentinel"
)

const (
	conversationPath = "/backend-api/conversation"
	dashboardPath    = "/dashboard/user/api_keys"

	modelField       = "model"
	arkoseTokenField = "arkose_token"
	nullLiteral      = "null"

	sentinelTokenHeader = "openai-sentinel-chat-requirements-token"
	arkoseTokenHeader   = "openai-sentinel-arkose-token"
)

// SessionCache is the get-or-init contract of the session-id cache.
type SessionCache interface {
	GetOrInit(ctx context.Context, accessToken, model, key string) (string, bool, error)
}

// SentinelFetcher fetches the chat-requirements token for a credential.
type SentinelFetcher interface {
	Fetch(ctx context.Context, accessToken string) (string, bool, error)
}

// ConversationRewriter injects the credentials the upstream conversation
// endpoint demands: the session cookie, the sentinel token header, and the
// challenge token in body and header. Non-matching requests pass untouched.
type ConversationRewriter struct {
	cache          SessionCache
	sentinel       SentinelFetcher
	broker         arkose.Broker
	gpt3Experiment bool
}

// NewConversationRewriter wires the rewriter's collaborators. gpt3Experiment
// extends the challenge-token step to gpt-3 family models.
func NewConversationRewriter(cache SessionCache, fetcher SentinelFetcher, broker arkose.Broker, gpt3Experiment bool) *ConversationRewriter {
	return &ConversationRewriter{
		cache:          cache,
		sentinel:       fetcher,
		broker:         broker,
		gpt3Experiment: gpt3Experiment,
	}
}

// Name returns the rewriter name
func (r *ConversationRewriter) Name() string {
	return "conversation"
}

// Priority returns the execution priority
func (r *ConversationRewriter) Priority() int {
	return 10
}

// hasSessionCookie reports whether the Cookie header already carries the
// session marker.
func hasSessionCookie(h http.Header) bool {
	cookie := h.Get("Cookie")
	if cookie == "" {
		return false
	}
	return strings.Contains(cookie, puid.SessionCookieName)
}

// Rewrite applies the conversation transform. Step order is load-bearing:
// the session cookie must be on the request before the challenge decision,
// and everything must be in place before the dispatcher forwards.
func (r *ConversationRewriter) Rewrite(ctx *core.ProxyContext, req *core.Request) error {
	if !(req.Method == http.MethodPost && req.URL.Path == conversationPath) {
		return nil
	}

	parsed, err := parseBody(req.Body)
	if err != nil {
		return err
	}

	modelValue := parsed.Get(modelField)
	if modelValue.Type != gjson.String {
		return BadRequest(ErrModelRequired)
	}
	modelName := modelValue.Str

	token := req.BearerAuth()
	if token == "" {
		return Unauthorized(ErrAccessTokenRequired)
	}

	// Session cookie. Skipped entirely when one is already present; no
	// redundant acquisition.
	if !hasSessionCookie(req.Header) {
		cacheKey := puid.ReduceKey(token)
		sid, ok, err := r.cache.GetOrInit(ctx, token, modelName, cacheKey)
		if err != nil {
			return Internal(fmt.Errorf("session id acquisition: %w", err))
		}
		if ok {
			if err := setHeader(req.Header, "Cookie", puid.SessionCookieName+"="+sid+";"); err != nil {
				return err
			}
		}
	}

	// Sentinel token. Absence of the token field is a soft condition; the
	// fetch failing is not.
	sentinelToken, found, err := r.sentinel.Fetch(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrUpstreamRejected) {
			return BadRequest(err)
		}
		return Internal(err)
	}
	if found {
		if err := setHeader(req.Header, sentinelTokenHeader, sentinelToken); err != nil {
			return err
		}
		ctx.Log.Debug("chat requirements token set")
	} else {
		ctx.Log.Warn("chat requirements token not found")
	}

	model, err := ParseModel(modelName)
	if err != nil {
		return BadRequest(err)
	}

	if !((r.gpt3Experiment && model.IsGPT3()) || model.IsGPT4()) {
		return nil
	}

	// Challenge token. An existing non-empty, non-"null" value is reused
	// and mirrored into the header; anything else means acquire.
	need := true
	if existing := parsed.Get(arkoseTokenField); existing.Exists() {
		s := ""
		if existing.Type == gjson.String {
			s = existing.Str
		}
		if s != "" && s != nullLiteral {
			if err := setHeader(req.Header, arkoseTokenHeader, s); err != nil {
				return err
			}
			ctx.Log.Debug("challenge token reused from body")
			need = false
		}
	}
	if !need {
		return nil
	}

	challengeToken, err := r.broker.Acquire(ctx, arkose.Context{
		Type:       model.ChallengeType(),
		Identifier: token,
	})
	if err != nil {
		return Internal(fmt.Errorf("challenge token acquisition: %w", err))
	}

	body, err := setBodyField(req.Body, arkoseTokenField, challengeToken)
	if err != nil {
		return err
	}
	req.Body = body
	if err := setHeader(req.Header, arkoseTokenHeader, challengeToken); err != nil {
		return err
	}
	ctx.Log.Debug("challenge token acquired", zap.String("type", string(model.ChallengeType())))

	return nil
}
