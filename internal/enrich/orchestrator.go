// Package enrich runs the three-stage analysis of a persisted posting:
// extraction of structured facts, compatibility evaluation against the
// candidate profile, and synthesis of a short readable report.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/llm"
	"github.com/iandry357/jobpulse/internal/posting"
)

// Stage sampling parameters. Extraction stays near-deterministic, synthesis
// is allowed more freedom.
const (
	extractionTemperature = 0.1
	evaluationTemperature = 0.3
	synthesisTemperature  = 0.5

	stageMaxTokens = 1500
)

// Generator is the text-generation dependency, satisfied by
// *llm.FallbackClient.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// Outcome carries the three stage outputs plus aggregate accounting over the
// generation calls that produced them.
type Outcome struct {
	Extraction *posting.Extraction
	Evaluation *posting.Evaluation
	Summary    string

	TokensUsed int
	Cost       float64
}

// Orchestrator sequences the three stages over a Generator. Each stage is a
// single generation call with explicit data passing between them.
type Orchestrator struct {
	generator Generator
	logger    *zap.Logger
}

func NewOrchestrator(generator Generator, log *zap.Logger) *Orchestrator {
	return &Orchestrator{generator: generator, logger: log}
}

// RunInitial produces a fresh report body for the posting's raw payload.
func (o *Orchestrator) RunInitial(ctx context.Context, raw map[string]any, profileText, initialPrompt string) (*Outcome, error) {
	return o.run(ctx, raw, profileText, initialPrompt, "")
}

// RunRecalculation reruns all three stages; the free-text instruction is
// appended to the synthesis prompt with priority over the base layout.
func (o *Orchestrator) RunRecalculation(ctx context.Context, raw map[string]any, profileText, initialPrompt, instruction string) (*Outcome, error) {
	return o.run(ctx, raw, profileText, initialPrompt, instruction)
}

func (o *Orchestrator) run(ctx context.Context, raw map[string]any, profileText, initialPrompt, instruction string) (*Outcome, error) {
	outcome := &Outcome{}

	offerText := OfferText(raw)
	if initialPrompt != "" {
		offerText = initialPrompt + "\n\n" + offerText
	}

	extractionRaw, err := o.generate(ctx, outcome, llm.Request{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   extractionUserPrompt(offerText),
		MaxTokens:    stageMaxTokens,
		Temperature:  extractionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction stage: %w", err)
	}
	outcome.Extraction = decodeStage[posting.Extraction](o.logger, "extraction", extractionRaw)

	evaluationRaw, err := o.generate(ctx, outcome, llm.Request{
		SystemPrompt: evaluationSystemPrompt(profileText),
		UserPrompt:   evaluationUserPrompt(outcome.Extraction),
		MaxTokens:    stageMaxTokens,
		Temperature:  evaluationTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation stage: %w", err)
	}
	outcome.Evaluation = decodeStage[posting.Evaluation](o.logger, "evaluation", evaluationRaw)
	outcome.Evaluation.MatchScore = clampMatchScore(outcome.Evaluation.MatchScore)

	summary, err := o.generate(ctx, outcome, llm.Request{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   synthesisUserPrompt(outcome.Extraction, outcome.Evaluation, instruction),
		MaxTokens:    stageMaxTokens,
		Temperature:  synthesisTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis stage: %w", err)
	}
	outcome.Summary = strings.TrimSpace(summary)

	return outcome, nil
}

func (o *Orchestrator) generate(ctx context.Context, outcome *Outcome, req llm.Request) (string, error) {
	result, err := o.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	outcome.TokensUsed += result.TokensUsed
	outcome.Cost += result.Cost
	return result.Text, nil
}

// offerField is one labeled line of the flattened offer text; empty values
// are dropped.
type offerField struct {
	label string
	value string
}

// OfferText flattens the raw upstream payload into the labeled plain text the
// extraction stage reads.
func OfferText(raw map[string]any) string {
	fields := []offerField{
		{"Intitulé", str(raw["intitule"])},
		{"Description", str(raw["description"])},
		{"Type de contrat", str(raw["typeContratLibelle"])},
		{"Expérience", str(raw["experienceLibelle"])},
		{"Salaire", nestedStr(raw, "salaire", "libelle")},
		{"Durée travail", str(raw["dureeTravailLibelleConverti"])},
		{"Secteur", str(raw["secteurActiviteLibelle"])},
		{"Entreprise", nestedStr(raw, "entreprise", "nom")},
		{"Description entreprise", nestedStr(raw, "entreprise", "description")},
		{"Compétences", joinLabels(raw["competences"])},
		{"Qualités professionnelles", joinLabels(raw["qualitesProfessionnelles"])},
		{"Contexte travail", nestedStr(raw, "contexteTravail", "horaires")},
	}

	var lines []string
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		lines = append(lines, f.label+" : "+f.value)
	}
	return strings.Join(lines, "\n")
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func nestedStr(raw map[string]any, outer, inner string) string {
	nested, _ := raw[outer].(map[string]any)
	if nested == nil {
		return ""
	}
	return str(nested[inner])
}

func joinLabels(v any) string {
	items, _ := v.([]any)
	var labels []string
	for _, item := range items {
		entry, _ := item.(map[string]any)
		if entry == nil {
			continue
		}
		if label := str(entry["libelle"]); label != "" {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}

const extractionSystemPrompt = "You are an expert at reading job postings. " +
	"You extract only factual information, without interpretation, and you " +
	"answer with a single valid JSON object: no prose before or after it."

func extractionUserPrompt(offerText string) string {
	return "Extract the following fields from this job posting as JSON. " +
		"Use null for fields the posting does not state.\n\n" +
		"Fields:\n" +
		"- job_objective (string or null): the position's main objective in one sentence\n" +
		"- soft_skills (list of strings): behavioural and interpersonal qualities mentioned\n" +
		"- salary_min (number or null): minimum salary in euros\n" +
		"- salary_max (number or null): maximum salary in euros\n" +
		"- salary_period (string or null): \"mensuel\" or \"annuel\"\n" +
		"- experience_years (integer or null): years of experience required\n" +
		"- experience_level (string or null): \"débutant\", \"junior\", \"confirmé\" or \"senior\"\n" +
		"- tech_stack (list of strings): technologies, languages and tools mentioned\n" +
		"- contract_type (string or null): contract type\n" +
		"- remote (string or null): \"full\", \"partial\" or \"none\"\n" +
		"- key_responsibilities (list of strings): main responsibilities\n" +
		"- benefits (list of strings): benefits mentioned\n\n" +
		"POSTING:\n" + offerText
}

func evaluationSystemPrompt(profileText string) string {
	return "You are an expert recruitment consultant. You know the candidate's " +
		"profile in detail:\n\n" + profileText + "\n\n" +
		"You judge objectively how well the profile fits each posting and you " +
		"answer with a single valid JSON object: no prose before or after it."
}

func evaluationUserPrompt(extraction *posting.Extraction) string {
	return "Given the structured posting data below, assess the compatibility " +
		"between the candidate's profile and this posting as JSON.\n\n" +
		"Fields:\n" +
		"- match_score (integer 0-100): overall compatibility score\n" +
		"- strengths (list of strings): the profile's strong points for this position\n" +
		"- gaps (list of strings): missing skills or experience\n" +
		"- differentiators (list of strings): elements that set the profile apart\n" +
		"- recommendation (string): \"forte\", \"moyenne\" or \"faible\"\n\n" +
		"POSTING DATA:\n" + stageJSON(extraction)
}

const synthesisSystemPrompt = "You write short, clear, actionable briefing " +
	"notes about job postings in the language of the posting. You answer in " +
	"markdown, at most 400 words."

func synthesisUserPrompt(extraction *posting.Extraction, evaluation *posting.Evaluation, instruction string) string {
	prompt := "Using the posting data and the compatibility assessment below, " +
		"write a briefing note with exactly these six sections:\n\n" +
		"- **Contexte**: overall context of the position and the company\n" +
		"- **Objectif**: the position's main mission\n" +
		"- **Attentes**: what the employer is looking for\n" +
		"- **Stack & Environnement**: technologies and working environment\n" +
		"- **Conditions**: salary, contract, remote policy, benefits\n" +
		"- **Verdict**: profile/posting fit in two or three sentences\n\n" +
		"POSTING DATA:\n" + stageJSON(extraction) + "\n\n" +
		"COMPATIBILITY ASSESSMENT:\n" + stageJSON(evaluation)

	if instruction != "" {
		prompt += "\n\nSPECIFIC INSTRUCTION FOR THIS REVISION:\n" + instruction +
			"\nApply this instruction with priority over the base layout."
	}
	return prompt
}

func stageJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
