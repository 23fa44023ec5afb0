package enrich

import (
	"testing"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/posting"
)

func TestDecodeStage(t *testing.T) {
	raw := `{"match_score":82,"strengths":["Go"],"recommendation":"forte"}`

	out := decodeStage[posting.Evaluation](zap.NewNop(), "evaluation", raw)
	if out.MatchScore != 82 || out.Recommendation != "forte" {
		t.Fatalf("unexpected decode: %+v", out)
	}
	if len(out.Strengths) != 1 || out.Strengths[0] != "Go" {
		t.Fatalf("unexpected strengths: %v", out.Strengths)
	}
}

func TestDecodeStageStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"job_objective\":\"build APIs\",\"tech_stack\":[\"go\",\"postgres\"]}\n```"

	out := decodeStage[posting.Extraction](zap.NewNop(), "extraction", raw)
	if out.JobObjective != "build APIs" {
		t.Fatalf("unexpected objective: %q", out.JobObjective)
	}
	if len(out.TechStack) != 2 {
		t.Fatalf("unexpected tech stack: %v", out.TechStack)
	}
}

func TestDecodeStageMalformedYieldsZeroStruct(t *testing.T) {
	out := decodeStage[posting.Extraction](zap.NewNop(), "extraction", "I could not produce JSON, sorry.")

	if out == nil {
		t.Fatal("expected a zero struct, got nil")
	}
	if out.JobObjective != "" || out.SalaryMin != nil || len(out.TechStack) != 0 {
		t.Fatalf("expected zero struct, got %+v", out)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
