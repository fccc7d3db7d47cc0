// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function calls arrive whole, so no argument reassembly is needed
// - Streaming via official SDK iterator

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client        *genai.Client
	model         string
	maxTokens     int32
	temperature   *float64
	supportsTools bool
	initErr       error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(cfg ProviderConfig) *GeminiProvider {
	p := &GeminiProvider{
		model:         cfg.model(),
		maxTokens:     int32(cfg.MaxTokens),
		temperature:   cfg.Temperature,
		supportsTools: cfg.SupportsTools,
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if baseURL := cfg.baseURL(); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// ProviderType returns the vendor name.
func (p *GeminiProvider) ProviderType() string {
	return ProviderGemini.String()
}

// SupportsTools reports whether tool schemas are sent with requests.
func (p *GeminiProvider) SupportsTools() bool {
	return p.supportsTools
}

func (p *GeminiProvider) ready() error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.client == nil {
		return fmt.Errorf("gemini client not initialized")
	}
	return nil
}

// ChatCompletion sends a chat completion request.
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := p.ready(); err != nil {
		return ChatResponse{}, err
	}

	contents, config := p.buildRequest(req)
	response, err := p.client.Models.GenerateContent(ctx, p.modelFor(req), contents, config)
	if err != nil {
		return ChatResponse{}, providerError(p.ProviderType(), err, "chat completion")
	}

	var out ChatResponse
	var index int
	out.Content, out.ToolCalls, out.FinishReason = extractGeminiResponse(response, &index)
	out.Usage = geminiUsage(response)
	return out, nil
}

// ChatCompletionStream streams a chat completion.
func (p *GeminiProvider) ChatCompletionStream(ctx context.Context, req ChatRequest, chunks chan<- StreamChunk) (*Usage, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	contents, config := p.buildRequest(req)

	var usage *Usage
	var index int
	finishReason := ""
	// GenerateContentStream returns iter.Seq2[*GenerateContentResponse, error]
	for response, err := range p.client.Models.GenerateContentStream(ctx, p.modelFor(req), contents, config) {
		if err != nil {
			return usage, providerError(p.ProviderType(), err, "stream")
		}

		if response.UsageMetadata != nil {
			u := geminiUsage(response)
			usage = &u
		}

		text, calls, reason := extractGeminiResponse(response, &index)
		if reason != "" {
			finishReason = reason
		}
		if text != "" {
			if err := send(ctx, chunks, StreamChunk{Content: text}); err != nil {
				return usage, err
			}
		}
		for _, call := range calls {
			if err := send(ctx, chunks, StreamChunk{ToolCall: &call}); err != nil {
				return usage, err
			}
		}
	}

	if err := send(ctx, chunks, StreamChunk{Done: true, FinishReason: finishReason}); err != nil {
		return usage, err
	}
	return usage, nil
}

func (p *GeminiProvider) modelFor(req ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

func (p *GeminiProvider) buildRequest(req ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, systemInstruction := convertToGeminiMessages(req.Messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: p.maxTokens,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if t := firstFloat(req.Temperature, p.temperature); t != nil {
		config.Temperature = genai.Ptr(float32(*t))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if p.supportsTools && len(req.Tools) > 0 {
		config.Tools = convertToGeminiTools(req.Tools)
		config.ToolConfig = geminiToolConfig(req.ToolChoice)
	}
	return contents, config
}

// extractGeminiResponse reads text, function calls and the finish reason from
// the first candidate. index numbers calls across a whole stream so
// synthesized ids stay unique.
func extractGeminiResponse(response *genai.GenerateContentResponse, index *int) (string, []ToolCall, string) {
	if response == nil || len(response.Candidates) == 0 {
		return "", nil, ""
	}
	candidate := response.Candidates[0]

	var text strings.Builder
	var calls []ToolCall
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil || part.FunctionCall.Args == nil {
					args = []byte("{}")
				}
				id := part.FunctionCall.ID
				if id == "" {
					id = SynthesizeToolCallID(part.FunctionCall.Name, *index)
				}
				*index++
				calls = append(calls, ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}
	return text.String(), calls, string(candidate.FinishReason)
}

func geminiUsage(response *genai.GenerateContentResponse) Usage {
	if response == nil || response.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int(response.UsageMetadata.PromptTokenCount),
		OutputTokens: int(response.UsageMetadata.CandidatesTokenCount),
	}
}

// convertToGeminiMessages converts messages to Gemini format.
// System messages are joined and returned separately; tool results become
// function responses named after the call they answer, grouped per turn.
func convertToGeminiMessages(messages []Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemParts []string
	callNames := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range NormalizeToolCalls(msg.ToolCalls) {
				callNames[tc.ID] = tc.Name
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			var result map[string]any
			_ = json.Unmarshal([]byte(msg.Content), &result)
			if result == nil {
				result = map[string]any{"result": msg.Content}
			}
			name := msg.Name
			if name == "" {
				name = callNames[msg.ToolCallID]
			}
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     name,
					Response: result,
				},
			}
			// Responses to one function-call turn share a single content
			if n := len(contents); n > 0 && isFunctionResponseContent(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser, // Gemini expects tool results as user
				Parts: []*genai.Part{part},
			})
		}
	}

	return contents, strings.Join(systemParts, "\n\n")
}

func isFunctionResponseContent(c *genai.Content) bool {
	if c.Role != genai.RoleUser || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func geminiToolConfig(choice ToolChoice) *genai.ToolConfig {
	cfg := &genai.FunctionCallingConfig{}
	switch choice {
	case "":
		return nil
	case ToolChoiceAuto:
		cfg.Mode = genai.FunctionCallingConfigModeAuto
	case ToolChoiceNone:
		cfg.Mode = genai.FunctionCallingConfigModeNone
	case ToolChoiceRequired:
		cfg.Mode = genai.FunctionCallingConfigModeAny
	default:
		cfg.Mode = genai.FunctionCallingConfigModeAny
		cfg.AllowedFunctionNames = []string{string(choice)}
	}
	return &genai.ToolConfig{FunctionCallingConfig: cfg}
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []ToolSchema) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	var declarations []*genai.FunctionDeclaration
	for _, t := range tools {
		schema := convertToGeminiSchema(t.Parameters)
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema recursively converts a parameter schema to Gemini format.
// Handles arrays by adding required 'items' field.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{
		Type: genai.TypeObject,
	}

	// Get type if present
	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}

	// Get required fields
	if req, ok := params["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	// Also handle []string
	if req, ok := params["required"].([]string); ok {
		schema.Required = req
	}

	// Convert properties
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			schema.Properties[name] = convertPropertyToGeminiSchema(propMap)
		}
	}

	return schema
}

// convertPropertyToGeminiSchema converts a single property to Gemini schema.
func convertPropertyToGeminiSchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	// Get type
	if t, ok := prop["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}

	// Get description
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}

	// Handle array items - Gemini requires 'items' for arrays
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = convertPropertyToGeminiSchema(items)
		} else {
			// Default to string items if not specified
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}

	// Handle nested object properties
	if schema.Type == genai.TypeObject {
		if props, ok := prop["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema)
			for name, p := range props {
				if pMap, ok := p.(map[string]any); ok {
					schema.Properties[name] = convertPropertyToGeminiSchema(pMap)
				}
			}
		}
	}

	return schema
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
