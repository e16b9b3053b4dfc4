// Package stages holds the nodes of the reasoning workflow and the graph that wires them.
//
// Every node reads a private copy of the walk and returns a delta. Recoverable problems
// (tool errors, unparseable oracle output, an unavailable signer) are folded into the
// walk; only failures that leave no sensible answer are returned as errors.
package stages

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/aretw0/cognito/pkg/trust"
)

// Node names.
const (
	NodeDecode        = "decode"
	NodeContextualize = "contextualize"
	NodeDetectIntent  = "detect_intent"
	NodeRouter        = "router"
	NodeSelectModel   = "select_model"
	NodeToolManager   = "tool_manager"
	NodeRiskAssessor  = "risk_assessor"
	NodeCritique      = "critique"
	NodeReplan        = "replan"
	NodeSynthesize    = "synthesize"
	NodeFusion        = "knowledge_fusion"
	NodeMetaCognition = "meta_cognition"
	NodeIdentity      = "identity"
	NodeAudit         = "audit"
)

// Models names the two tiers the model selector picks from.
type Models struct {
	Strong  string `yaml:"strong" mapstructure:"strong"`
	Default string `yaml:"default" mapstructure:"default"`
}

// Policy holds the tunables of the safety and routing stages.
type Policy struct {
	// Regulated specialists always produce high-risk answers.
	Regulated []domain.Specialist
	// SensitiveTopics mark a query high-risk whatever the specialist.
	SensitiveTopics []string
	Models          Models
	// MaxIterations must match the engine ceiling; synthesis uses it for the caveat.
	MaxIterations int
	// Specialists scoring below ReputationFloor are escalated to the strong model.
	ReputationFloor float64
}

// DefaultPolicy mirrors the built-in configuration.
func DefaultPolicy() Policy {
	return Policy{
		Regulated:       domain.Regulated(),
		SensitiveTopics: []string{"investment"},
		Models:          Models{Strong: "gpt-4o", Default: "gpt-3.5-turbo"},
		MaxIterations:   3,
		ReputationFloor: 0.3,
	}
}

func (p Policy) regulated(s domain.Specialist) bool {
	for _, r := range p.Regulated {
		if r == s {
			return true
		}
	}
	return false
}

// Deps are the collaborators shared by every node.
type Deps struct {
	Oracle ports.ReasoningOracle
	Tools  *registry.Registry
	// Decoder defaults to one accepting every registered tool.
	Decoder    *oracle.Decoder
	Signer     ports.Signer
	Hasher     trust.Hasher
	Knowledge  ports.KnowledgeSink
	Training   ports.TrainingSink
	Reputation ports.ReputationStore
	// Experts defaults to DefaultExperts.
	Experts []Expert
	Policy  Policy
	Logger  *slog.Logger
	Clock   func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Tools == nil {
		d.Tools = registry.Builtin()
	}
	if d.Decoder == nil {
		d.Decoder = oracle.NewDecoder(d.Tools.Names())
	}
	if d.Hasher == nil {
		d.Hasher = trust.SHA256Hasher{}
	}
	if d.Experts == nil {
		d.Experts = DefaultExperts()
	}
	if d.Policy.MaxIterations <= 0 {
		d.Policy.MaxIterations = DefaultPolicy().MaxIterations
	}
	if d.Policy.Models == (Models{}) {
		d.Policy.Models = DefaultPolicy().Models
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}
