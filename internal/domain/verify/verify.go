// Package verify implements C7: the optional secondary LLM verification pass.
// It is engaged only for detections whose primary is a real threat (never
// AllClear) and is fail-open by contract: on any timeout, transport error,
// parse failure, or malformed response it must return the candidate set
// unchanged rather than propagate an error that would suppress a real alert.
//
// Grounded on the teacher's outbound HTTP call shape (go-faster/errors
// wrapping, context.WithTimeout) and the LLM-call patterns surveyed from the
// rest of the example pack (a single POST to an OpenAI-compatible
// /v1/chat/completions endpoint, JSON body, structured reply).
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/infra/logger"
)

// Verifier is the exchangeable capability the design notes (spec.md §9) call
// for. The default/test double is PassThroughVerifier.
type Verifier interface {
	// Verify returns the subset of candidates the verifier confirms. It may
	// only remove kinds, never add ones not present in candidates.
	Verify(ctx context.Context, text string, candidates []catalogue.ThreatKind) []catalogue.ThreatKind
}

// PassThroughVerifier confirms every candidate unchanged. Used when
// LLM_ENABLED is false and as the default test double.
type PassThroughVerifier struct{}

// Verify implements Verifier by returning candidates unchanged.
func (PassThroughVerifier) Verify(_ context.Context, _ string, candidates []catalogue.ThreatKind) []catalogue.ThreatKind {
	return candidates
}

// chatMessage mirrors the OpenAI-compatible chat-completions request shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// verdict is the fixed structured reply we instruct the model to produce:
// one JSON object with a "confirmed" array of lowercase ThreatKind names.
type verdict struct {
	Confirmed []string `json:"confirmed"`
}

// OpenAICompatibleVerifier posts to an OpenAI-compatible /v1/chat/completions
// endpoint. Timeout and fail-open behavior are enforced by Verify itself, so
// callers never need to special-case its errors.
type OpenAICompatibleVerifier struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
	client   *http.Client
}

// NewOpenAICompatibleVerifier builds a verifier bound to endpoint/model with
// the given timeout. A dedicated *http.Client is used (rather than
// http.DefaultClient) so the timeout is the single source of truth; Verify
// additionally derives a context deadline, matching the belt-and-suspenders
// timeout style the teacher uses around its own outbound calls.
func NewOpenAICompatibleVerifier(endpoint, model string, timeout time.Duration) *OpenAICompatibleVerifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &OpenAICompatibleVerifier{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		Timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

// Verify asks the model to confirm or deny each candidate kind and returns
// the confirmed subset. Any failure along the way fails open: the original
// candidates are returned unchanged and the failure is logged at debug level
// per spec.md §7 ("LLM error ... Suppressed (fail-open); logged at debug
// level" — here "suppressed" means the verifier's own opinion is discarded,
// not the alert).
func (v *OpenAICompatibleVerifier) Verify(ctx context.Context, text string, candidates []catalogue.ThreatKind) []catalogue.ThreatKind {
	if len(candidates) == 0 {
		return candidates
	}

	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	confirmed, err := v.call(ctx, text, candidates)
	if err != nil {
		logger.Debug(fmt.Sprintf("llm verify failed open: %v", err))
		return candidates
	}
	return confirmed
}

func (v *OpenAICompatibleVerifier) call(ctx context.Context, text string, candidates []catalogue.ThreatKind) ([]catalogue.ThreatKind, error) {
	names := make([]string, len(candidates))
	for i, k := range candidates {
		names[i] = k.String()
	}

	prompt := fmt.Sprintf(
		"Message: %q\nCandidate threat kinds: %s\n"+
			"Reply with ONLY a JSON object {\"confirmed\": [...]} listing the kinds "+
			"from the candidate list that the message genuinely describes.",
		text, strings.Join(names, ", "),
	)

	body, err := json.Marshal(chatRequest{
		Model: v.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You verify air-raid alert classifications. Reply with strict JSON only."},
			{Role: "user", Content: prompt},
		},
		Stream: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("llm endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("llm response has no choices")
	}

	var v2 verdict
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &v2); err != nil {
		return nil, errors.Wrap(err, "parse verdict json")
	}

	return intersect(candidates, v2.Confirmed), nil
}

// intersect returns the subset of candidates whose String() form appears in
// confirmedNames, preserving candidates' original order. This is what makes
// the verifier structurally unable to add a kind: it can only ever return a
// subsequence of what it was given.
func intersect(candidates []catalogue.ThreatKind, confirmedNames []string) []catalogue.ThreatKind {
	want := make(map[string]struct{}, len(confirmedNames))
	for _, n := range confirmedNames {
		want[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	var out []catalogue.ThreatKind
	for _, k := range candidates {
		if _, ok := want[k.String()]; ok {
			out = append(out, k)
		}
	}
	return out
}
