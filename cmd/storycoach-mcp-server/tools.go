package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"story-coach/internal/agents"
	"story-coach/internal/app"
	"story-coach/internal/experts"
	"story-coach/internal/history"
	"story-coach/internal/persona"
)

// GetSceneParams параметры для получения сцены
type GetSceneParams struct {
	Topic        string `json:"topic" mcp:"topic id (toilet, barber, hospital, park, morning_routine) or its Japanese name"`
	Index        int    `json:"index" mcp:"scene number, 0-based"`
	UseVariation *bool  `json:"use_variation,omitempty" mcp:"generate an AI variation (default: USE_AI_GENERATION)"`
	ForceNew     bool   `json:"force_new,omitempty" mcp:"skip the cache and generate again"`
}

// ParentSituationParams параметры для ситуации родителя
type ParentSituationParams struct {
	Topic       string `json:"topic" mcp:"topic id or Japanese name"`
	MaxAttempts int    `json:"max_attempts,omitempty" mcp:"generation attempts before falling back to prepared situations"`
}

// AskParams параметры вопроса экспертам
type AskParams struct {
	Question       string `json:"question" mcp:"the parent's question"`
	Mode           string `json:"mode,omitempty" mcp:"quick (default), expert, sequential or comprehensive"`
	Persona        string `json:"persona,omitempty" mcp:"persona id for mode=expert, see list_experts"`
	Tone           string `json:"tone,omitempty" mcp:"friendly (default) or standard"`
	Background     string `json:"background,omitempty" mcp:"extra background about the child or situation"`
	ConversationID string `json:"conversation_id,omitempty" mcp:"carry earlier answers of this conversation as background"`
}

// TeamParams параметры командного ответа
type TeamParams struct {
	Question   string   `json:"question" mcp:"the parent's question"`
	Background string   `json:"background,omitempty" mcp:"extra background about the child or situation"`
	Personas   []string `json:"personas,omitempty" mcp:"persona ids to consult (default: all)"`
}

// ChildFeedbackParams параметры отзыва на выбор ребенка
type ChildFeedbackParams struct {
	Scene      string `json:"scene" mcp:"scene text the child saw"`
	Choice     string `json:"choice" mcp:"the action the child picked"`
	Evaluation string `json:"evaluation" mcp:"appropriate, acceptable or inappropriate"`
	Hint       string `json:"hint,omitempty" mcp:"what the feedback should focus on"`
}

// ParentActionParams параметры отзыва на действие родителя
type ParentActionParams struct {
	Event        string `json:"event" mcp:"event name, e.g. 床屋"`
	ChildAction  string `json:"child_action" mcp:"what the child did"`
	ParentAction string `json:"parent_action" mcp:"how the parent reacted"`
	Evaluation   string `json:"evaluation" mcp:"appropriate, acceptable or inappropriate"`
	Coach        string `json:"coach,omitempty" mcp:"logical_doctor (default), gentle_teacher or cheer_coach"`
	Detailed     bool   `json:"detailed,omitempty" mcp:"ask for the long four-part explanation"`
	Reference    string `json:"reference,omitempty" mcp:"background knowledge to draw on"`
}

// SituationGuideParams параметры руководства по ситуации
type SituationGuideParams struct {
	Event        string `json:"event" mcp:"event name"`
	Scene        string `json:"scene" mcp:"scene description"`
	ChildAction  string `json:"child_action" mcp:"what the child did"`
	ParentAction string `json:"parent_action" mcp:"one of the reactions from list_parent_options"`
	Coach        string `json:"coach,omitempty" mcp:"logical_doctor (default), gentle_teacher or cheer_coach"`
}

// ConsultParams параметры вопроса в выбранном стиле
type ConsultParams struct {
	Question string `json:"question" mcp:"the parent's question"`
	Coach    string `json:"coach,omitempty" mcp:"logical_doctor (default), gentle_teacher or cheer_coach"`
}

type NoParams struct{}

const historyLimit = 3

// CoachMCPServer exposes the coach services as MCP tools.
type CoachMCPServer struct {
	app     *app.App
	history *history.Manager
}

func NewCoachMCPServer(a *app.App, h *history.Manager) *CoachMCPServer {
	return &CoachMCPServer{app: a, history: h}
}

// Register adds every tool to server and returns their names.
func (s *CoachMCPServer) Register(server *mcp.Server) []string {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_scene",
		Description: "Returns one scene of a social story, an AI variation if it passes the quality check, otherwise the prepared template",
	}, s.GetScene)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "random_parent_situation",
		Description: "Returns a situation a parent may face with their child, with guidance",
	}, s.RandomParentSituation)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_expert",
		Description: "Answers a parent's question in one response mode",
	}, s.AskExpert)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_team",
		Description: "Asks every expert and returns their answers plus one synthesized answer",
	}, s.AskTeam)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "child_feedback",
		Description: "Returns short encouraging feedback on the action a child picked in a scene",
	}, s.ChildFeedback)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "parent_action_feedback",
		Description: "Comments on how a parent reacted to their child, briefly or in detail",
	}, s.ParentActionFeedback)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "situation_guide",
		Description: "Explains in depth why an offered parent reaction helps or not",
	}, s.SituationGuide)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_parent_options",
		Description: "Lists the parent reactions situation_guide can explain",
	}, s.ListParentOptions)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "consult_coach",
		Description: "Answers a parent's question in one coach style",
	}, s.ConsultCoach)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_experts",
		Description: "Lists the expert personas",
	}, s.ListExperts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Returns scenario cache statistics",
	}, s.CacheStats)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "purge_cache",
		Description: "Removes expired cache entries",
	}, s.PurgeCache)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_stats",
		Description: "Returns token usage, cost and cache hit rate of this server session",
	}, s.SessionStats)
	return []string{
		"get_scene", "random_parent_situation", "ask_expert", "ask_team",
		"child_feedback", "parent_action_feedback", "situation_guide", "list_parent_options", "consult_coach",
		"list_experts", "cache_stats", "purge_cache", "session_stats",
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: "❌ " + fmt.Sprintf(format, args...)},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func (s *CoachMCPServer) GetScene(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[GetSceneParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	useVariation := s.app.Config.UseAIGeneration
	if args.UseVariation != nil {
		useVariation = *args.UseVariation
	}
	scene, err := s.app.Generator.GetScene(ctx, args.Topic, args.Index, useVariation, args.ForceNew)
	if err != nil {
		return errorResult("Failed to get scene: %v", err), nil
	}
	return jsonResult(scene)
}

func (s *CoachMCPServer) RandomParentSituation(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ParentSituationParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	situation, err := s.app.Generator.RandomParentSituation(ctx, args.Topic, s.app.SituationAttempts(args.MaxAttempts))
	if err != nil {
		return errorResult("Failed to get parent situation: %v", err), nil
	}
	return jsonResult(situation)
}

func (s *CoachMCPServer) AskExpert(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[AskParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.Question == "" {
		return errorResult("question is required"), nil
	}
	mode := experts.ModeQuick
	if args.Mode != "" {
		m, err := experts.ParseMode(args.Mode)
		if err != nil {
			return errorResult("%v", err), nil
		}
		mode = m
	}

	req := experts.Ask{
		Mode:       mode,
		Persona:    persona.ID(args.Persona),
		Question:   args.Question,
		Background: args.Background,
		Tone:       persona.ParseTone(args.Tone),
	}
	if mode == experts.ModeExpert {
		p, ok := s.app.Experts.Registry().Get(req.Persona)
		if !ok {
			return errorResult("unknown persona %q", args.Persona), nil
		}
		req.Persona = p.ID
	}
	if args.ConversationID != "" {
		req.Background = s.history.Background(args.ConversationID, args.Background, historyLimit)
	}

	answer := experts.Collect(s.app.Experts.TextStream(ctx, req))
	if args.ConversationID != "" {
		s.history.Append(args.ConversationID, string(mode), args.Question, answer)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: answer}},
		Meta: map[string]interface{}{
			"mode":    string(mode),
			"persona": string(req.Persona),
		},
	}, nil
}

func (s *CoachMCPServer) AskTeam(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[TeamParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.Question == "" {
		return errorResult("question is required"), nil
	}
	reg := s.app.Experts.Registry()
	ids := make([]persona.ID, 0, len(args.Personas))
	for _, raw := range args.Personas {
		p, ok := reg.Get(persona.ID(raw))
		if !ok {
			return errorResult("unknown persona %q", raw), nil
		}
		ids = append(ids, p.ID)
	}
	return jsonResult(s.app.Experts.ComprehensiveResponse(ctx, args.Question, args.Background, ids))
}

func textResult(text string, meta map[string]interface{}) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta:    meta,
	}
}

func (s *CoachMCPServer) ChildFeedback(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ChildFeedbackParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.Choice == "" {
		return errorResult("choice is required"), nil
	}
	eval, err := agents.ParseEvaluation(args.Evaluation)
	if err != nil {
		return errorResult("%v", err), nil
	}
	text, err := s.app.Experts.Feedback(ctx, experts.ChoiceFeedback{
		Scene:      args.Scene,
		Choice:     args.Choice,
		Evaluation: eval,
		Hint:       args.Hint,
	})
	if err != nil {
		return errorResult("Failed to generate feedback: %v", err), nil
	}
	return textResult(text, map[string]interface{}{"evaluation": string(eval)}), nil
}

func (s *CoachMCPServer) ParentActionFeedback(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ParentActionParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	eval, err := agents.ParseEvaluation(args.Evaluation)
	if err != nil {
		return errorResult("%v", err), nil
	}
	coach, err := persona.ParseCoach(args.Coach)
	if err != nil {
		return errorResult("%v", err), nil
	}
	text, err := s.app.Experts.ParentActionFeedback(ctx, experts.ParentReaction{
		Event:        args.Event,
		ChildAction:  args.ChildAction,
		ParentAction: args.ParentAction,
		Evaluation:   eval,
		Coach:        coach,
		Detailed:     args.Detailed,
		Reference:    args.Reference,
	})
	if err != nil {
		return errorResult("Failed to generate parent feedback: %v", err), nil
	}
	return textResult(text, map[string]interface{}{"coach": string(coach), "detailed": args.Detailed}), nil
}

func (s *CoachMCPServer) SituationGuide(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[SituationGuideParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	coach, err := persona.ParseCoach(args.Coach)
	if err != nil {
		return errorResult("%v", err), nil
	}
	text, err := s.app.Experts.SituationGuide(ctx, experts.GuideRequest{
		Event:        args.Event,
		Scene:        args.Scene,
		ChildAction:  args.ChildAction,
		ParentAction: args.ParentAction,
		Coach:        coach,
	})
	if err != nil {
		return errorResult("Failed to generate situation guide: %v", err), nil
	}
	return textResult(text, map[string]interface{}{"coach": string(coach)}), nil
}

func (s *CoachMCPServer) ListParentOptions(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	return jsonResult(experts.ParentOptions)
}

func (s *CoachMCPServer) ConsultCoach(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ConsultParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.Question == "" {
		return errorResult("question is required"), nil
	}
	coach, err := persona.ParseCoach(args.Coach)
	if err != nil {
		return errorResult("%v", err), nil
	}
	text, err := s.app.Experts.AnswerParentQuestion(ctx, args.Question, coach)
	if err != nil {
		return errorResult("Failed to answer question: %v", err), nil
	}
	return textResult(text, map[string]interface{}{"coach": string(coach)}), nil
}

func (s *CoachMCPServer) ListExperts(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	return jsonResult(s.app.Experts.Registry().List())
}

func (s *CoachMCPServer) CacheStats(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	st, err := s.app.Generator.CacheStats()
	if err != nil {
		return errorResult("Failed to read cache stats: %v", err), nil
	}
	return jsonResult(st)
}

func (s *CoachMCPServer) PurgeCache(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	n, err := s.app.Generator.PurgeExpired()
	if err != nil {
		return errorResult("Failed to purge cache: %v", err), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("✅ Removed %d expired entries", n)}},
		Meta:    map[string]interface{}{"removed": n},
	}, nil
}

func (s *CoachMCPServer) SessionStats(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[NoParams]) (*mcp.CallToolResultFor[any], error) {
	return jsonResult(s.app.Session.Stats())
}
