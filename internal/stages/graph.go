package stages

import (
	"fmt"

	"github.com/aretw0/cognito/internal/runtime"
	"github.com/aretw0/cognito/pkg/domain"
)

// RoutePass is the critique label that moves a walk on to fusion.
const RoutePass = "pass"

// BuildGraph wires the workflow:
//
//	decode -> contextualize -> detect_intent -> router -> select_model
//	  -> <specialist> -> tool_manager -> risk_assessor -> critique
//	critique: pass -> knowledge_fusion; fail -> <specialist> (retry); else -> synthesize
//	replan -> <specialist> (retry)
//	synthesize -> knowledge_fusion -> meta_cognition -> identity -> audit -> end
//
// Every specialist in the closed set must have an expert; a missing or unknown one is
// a configuration error.
func BuildGraph(deps Deps) (*runtime.Graph, error) {
	deps = deps.withDefaults()
	if deps.Oracle == nil {
		return nil, fmt.Errorf("%w: no reasoning oracle", domain.ErrGraphMisconfigured)
	}

	experts := make(map[domain.Specialist]Expert, len(deps.Experts))
	for _, e := range deps.Experts {
		if !e.ID.Valid() {
			return nil, fmt.Errorf("%w: unknown specialist %q", domain.ErrGraphMisconfigured, e.ID)
		}
		experts[e.ID] = e
	}

	g := runtime.NewGraph().
		AddNode(runtime.Func(NodeDecode, deps.decode)).
		AddNode(runtime.Func(NodeContextualize, deps.contextualize)).
		AddNode(runtime.Func(NodeDetectIntent, deps.detectIntent)).
		AddNode(runtime.Func(NodeRouter, deps.route)).
		AddNode(runtime.Func(NodeSelectModel, deps.selectModel))

	dispatch := make(map[string]runtime.Route, len(experts))
	retry := make(map[string]runtime.Route, len(experts)+1)
	for _, id := range domain.Specialists() {
		e, ok := experts[id]
		if !ok {
			return nil, fmt.Errorf("%w: no expert registered for %q", domain.ErrGraphMisconfigured, id)
		}
		g.AddNode(specialistNode{deps: deps, expert: e}).AddEdge(string(id), NodeToolManager)
		dispatch[string(id)] = runtime.Route{To: string(id)}
		retry[string(id)] = runtime.Route{To: string(id), Retry: true}
	}

	review := map[string]runtime.Route{RoutePass: {To: NodeFusion}}
	for label, r := range retry {
		review[label] = r
	}

	g.AddNode(toolManager{deps: deps}).
		AddNode(runtime.Func(NodeRiskAssessor, deps.assessRisk)).
		AddNode(runtime.Func(NodeCritique, deps.critique)).
		AddNode(runtime.Func(NodeReplan, deps.replan)).
		AddNode(runtime.Func(NodeSynthesize, deps.synthesize)).
		AddNode(runtime.Func(NodeFusion, deps.fuse)).
		AddNode(runtime.Func(NodeMetaCognition, deps.reflect)).
		AddNode(runtime.Func(NodeIdentity, deps.identify)).
		AddNode(runtime.Func(NodeAudit, deps.audit))

	g.AddEdge(NodeDecode, NodeContextualize).
		AddEdge(NodeContextualize, NodeDetectIntent).
		AddEdge(NodeDetectIntent, NodeRouter).
		AddEdge(NodeRouter, NodeSelectModel).
		AddConditionalEdge(NodeSelectModel, routeTarget, dispatch, string(domain.DefaultSpecialist)).
		AddEdge(NodeToolManager, NodeRiskAssessor).
		AddEdge(NodeRiskAssessor, NodeCritique).
		AddConditionalEdge(NodeCritique, reviewOutcome, review, NodeSynthesize).
		AddConditionalEdge(NodeReplan, activeSpecialist, retry, NodeSynthesize).
		AddEdge(NodeSynthesize, NodeFusion).
		AddEdge(NodeFusion, NodeMetaCognition).
		AddEdge(NodeMetaCognition, NodeIdentity).
		AddEdge(NodeIdentity, NodeAudit).
		AddEdge(NodeAudit, runtime.End).
		SetEntry(NodeDecode).
		SetExhausted(NodeSynthesize).
		SetReplan(NodeReplan)

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func routeTarget(s *domain.State) string { return s.TargetRoute }

func activeSpecialist(s *domain.State) string { return string(s.ActiveSpecialist) }

func reviewOutcome(s *domain.State) string {
	if domain.ClassifyCritique(s.CritiqueReport) == domain.VerdictPass {
		return RoutePass
	}
	return string(s.ActiveSpecialist)
}
