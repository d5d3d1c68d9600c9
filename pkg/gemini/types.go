package gemini

// Wire types for the generateContent REST API. Field names follow the
// JSON casing of the v1beta surface.

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of a Content: text, inline binary data (audio,
// images), a model-emitted function call, or a host-supplied function
// response.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob carries base64-encoded bytes with their mime type.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Schema is the subset of the OpenAPI schema dialect the function
// declarations use: flat objects of typed scalar properties.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

type FunctionCallingConfig struct {
	Mode string `json:"mode,omitempty"`
}

type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type GenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	ToolConfig        *ToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type Response struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// FunctionCalls returns the function calls of the first candidate in
// model order.
func (r *Response) FunctionCalls() []FunctionCall {
	content := r.ModelContent()
	if content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// Text joins the text parts of the first candidate with single spaces.
func (r *Response) Text() string {
	content := r.ModelContent()
	if content == nil {
		return ""
	}
	out := ""
	for _, p := range content.Parts {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p.Text
	}
	return out
}

// ModelContent returns the first candidate's content, for echoing back
// into the next request of a function-calling round.
func (r *Response) ModelContent() *Content {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content
}

// empty reports whether the response carries neither text nor function
// calls. Gemini occasionally returns such responses transiently.
func (r *Response) empty() bool {
	content := r.ModelContent()
	if content == nil {
		return true
	}
	for _, p := range content.Parts {
		if p.Text != "" || p.FunctionCall != nil {
			return false
		}
	}
	return true
}

// Float64 is a convenience for GenerationConfig literals.
func Float64(v float64) *float64 { return &v }
