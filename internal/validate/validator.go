// Package validate accepts, corrects, or rejects free-text profession
// input using an LLM classifier. Lenient by design: only clearly
// non-profession input is rejected, and classifier outages fail open.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brieflyhq/briefly/internal/llm"
	"github.com/brieflyhq/briefly/pkg/utils"
)

// Status is the outcome of a validation.
type Status string

const (
	// Accepted means the input is a profession as given.
	Accepted Status = "accepted"
	// Corrected means the input is a recognizable misspelling; use
	// Result.Profession instead.
	Corrected Status = "corrected"
	// Rejected means the input is clearly not a profession.
	Rejected Status = "rejected"
)

// Result carries the validation outcome.
type Result struct {
	Status     Status `json:"status"`
	Profession string `json:"profession"` // normalized; corrected spelling when Status == Corrected
	Reason     string `json:"reason,omitempty"`
}

// Validator classifies profession strings.
type Validator struct {
	provider llm.Provider
	opts     *llm.ChatOptions
	log      *logrus.Logger
}

// New creates a Validator over the given LLM provider.
func New(provider llm.Provider, opts *llm.ChatOptions, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{provider: provider, opts: opts, log: log}
}

const systemPrompt = "You are a helpful profession validator. Be very lenient and accept anything that could reasonably be a job or profession, including unusual ones. Only reject clear non-professions. Only suggest corrections for recognizable misspellings, not for random text."

func userPrompt(profession string) string {
	return fmt.Sprintf(`Is %[1]q a valid profession or job title? Be VERY lenient and accept:
- Real professions (doctor, teacher, engineer)
- Unusual but real jobs (bed tester, fortune cookie writer, professional cuddler)
- Creative/emerging roles (content creator, influencer, AI trainer)
- Misspelled professions (fil maker = filmmaker)

REJECT only clearly non-profession things like:
- Objects (sofa, table, car)
- Animals (unless it's a job like "dog trainer")
- Abstract concepts (love, happiness)
- Fantasy creatures (unicorn, dragon)
- Random gibberish (kjhgfkvghtf)

If it's a misspelled profession that you can recognize, provide the corrected version.
If it's completely unrecognizable or random text, do NOT provide a correction - just mark as invalid.

Respond in this format:
VALID: yes/no
CORRECTED: [corrected spelling if it's a recognizable misspelling, otherwise write "NONE"]
REASON: [brief explanation if rejected]

Input: %[1]q`, profession)
}

// Validate classifies raw profession input. Input under two characters is
// rejected without an LLM call; classifier errors fail open to Accepted.
func (v *Validator) Validate(ctx context.Context, raw string) Result {
	normalized := utils.NormalizeProfession(raw)
	if len(normalized) < 2 {
		return Result{
			Status:     Rejected,
			Profession: normalized,
			Reason:     "Please enter a profession with at least 2 characters.",
		}
	}

	resp, err := v.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(userPrompt(normalized)),
	}, v.opts)
	if err != nil {
		// Fail open: a broken validator must not block the user.
		v.log.WithError(err).Warn("profession validation unavailable, accepting input")
		return Result{Status: Accepted, Profession: normalized}
	}

	return parseVerdict(resp.Content, normalized)
}

// parseVerdict reads the VALID/CORRECTED/REASON line format.
func parseVerdict(content, normalized string) Result {
	valid := true
	corrected := ""
	reason := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "VALID:"):
			valid = strings.Contains(strings.ToLower(line), "yes")
		case strings.HasPrefix(line, "CORRECTED:"):
			corrected = strings.TrimSpace(strings.TrimPrefix(line, "CORRECTED:"))
		case strings.HasPrefix(line, "REASON:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}

	if !valid {
		return Result{Status: Rejected, Profession: normalized, Reason: reason}
	}

	corrected = utils.NormalizeProfession(corrected)
	if corrected != "" && corrected != "none" && corrected != normalized {
		return Result{Status: Corrected, Profession: corrected}
	}
	return Result{Status: Accepted, Profession: normalized}
}
