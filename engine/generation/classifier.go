package generation

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
)

// Intent is the routing decision for an incoming user message.
type Intent string

const (
	// IntentLegalQuery routes to the full RAG pipeline.
	IntentLegalQuery Intent = "LEGAL_QUERY"
	// IntentChitchat is answered directly, no retrieval.
	IntentChitchat Intent = "CHITCHAT"
	// IntentOffTopic gets a polite refusal.
	IntentOffTopic Intent = "OFF_TOPIC"
)

const classificationPrompt = `Tu es un classificateur d'intention pour un assistant juridique spécialisé dans le Code de la Route français.

Classifie le message de l'utilisateur dans EXACTEMENT une de ces catégories :

LEGAL_QUERY : Question sur le droit routier, le code de la route, les infractions, les sanctions, les limitations de vitesse, le permis de conduire, l'alcool au volant, le stationnement, la signalisation, les équipements obligatoires, etc.
CHITCHAT : Salutation, remerciement, question sur l'identité du bot, bavardage sans rapport juridique.
OFF_TOPIC : Question sérieuse mais hors du domaine du code de la route (cuisine, sport, politique, médecine, etc.).`

// intentSchema forces the model to return a valid enum value, so no fuzzy
// text parsing is needed.
var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type: genai.TypeString,
			Enum: []string{string(IntentLegalQuery), string(IntentChitchat), string(IntentOffTopic)},
		},
	},
	Required: []string{"intent"},
}

// Classifier routes user messages by intent using structured model output.
// On any failure it defaults to IntentLegalQuery so a real question is never
// blocked by a flaky classification call.
type Classifier struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(client *genai.Client, model string, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{client: client, model: model, log: log}
}

// Classify returns the intent of a user message.
func (c *Classifier) Classify(ctx context.Context, query string) Intent {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < 2 {
		return IntentChitchat
	}

	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(classificationPrompt)}}
	model.SetTemperature(0)
	model.SetMaxOutputTokens(50)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = intentSchema

	resp, err := model.GenerateContent(ctx, genai.Text("Message utilisateur : "+query))
	if err != nil {
		c.log.Warn("generation: classification failed, defaulting to legal query", "error", err)
		return IntentLegalQuery
	}

	raw := strings.Join(textChunks(resp), "")
	intent, ok := parseIntent(raw)
	if !ok {
		c.log.Warn("generation: unparseable classification, defaulting to legal query", "raw", raw)
		return IntentLegalQuery
	}
	return intent
}

// parseIntent decodes the structured {"intent": "..."} response.
func parseIntent(raw string) (Intent, bool) {
	var payload struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return IntentLegalQuery, false
	}
	switch Intent(payload.Intent) {
	case IntentLegalQuery, IntentChitchat, IntentOffTopic:
		return Intent(payload.Intent), true
	}
	return IntentLegalQuery, false
}
