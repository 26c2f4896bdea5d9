package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
	"google.golang.org/api/translate/v2"
)

// CloudNarrator uses Cloud Text-to-Speech.
type CloudNarrator struct {
	svc *texttospeech.Service
}

func NewCloudNarrator(ctx context.Context, opts ...option.ClientOption) (*CloudNarrator, error) {
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &CloudNarrator{svc: svc}, nil
}

func (c *CloudNarrator) Narrate(ctx context.Context, text, language string) ([]byte, error) {
	resp, err := c.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: language,
			SsmlGender:   "NEUTRAL",
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.AudioContent)
}

// CloudTranslator uses the Cloud Translation v2 API.
type CloudTranslator struct {
	svc *translate.Service
}

func NewCloudTranslator(ctx context.Context, opts ...option.ClientOption) (*CloudTranslator, error) {
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate client: %w", err)
	}
	return &CloudTranslator{svc: svc}, nil
}

func (c *CloudTranslator) Translate(ctx context.Context, text, target string) (Translation, error) {
	resp, err := c.svc.Translations.List([]string{text}, target).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return Translation{}, err
	}
	if len(resp.Translations) == 0 {
		return Translation{}, fmt.Errorf("no translation returned")
	}
	tr := resp.Translations[0]
	return Translation{Text: tr.TranslatedText, Source: tr.DetectedSourceLanguage}, nil
}

// DefaultImagenModel is the Vertex AI publisher model used for illustrations.
const DefaultImagenModel = "imagen-3.0-generate-002"

// ImagenIllustrator calls an Imagen model on Vertex AI.
type ImagenIllustrator struct {
	svc      *aiplatform.Service
	endpoint string
}

// NewImagenIllustrator uses application default credentials.
func NewImagenIllustrator(ctx context.Context, project, location, model string, opts ...option.ClientOption) (*ImagenIllustrator, error) {
	if project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if location == "" {
		location = "us-central1"
	}
	if model == "" {
		model = DefaultImagenModel
	}
	opts = append([]option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("https://%s-aiplatform.googleapis.com/", location)),
	}, opts...)
	svc, err := aiplatform.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}
	return &ImagenIllustrator{
		svc:      svc,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", project, location, model),
	}, nil
}

func (c *ImagenIllustrator) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	req := &aiplatform.GoogleCloudAiplatformV1PredictRequest{
		Instances: []interface{}{
			map[string]interface{}{"prompt": illustrationPrompt(prompt)},
		},
		Parameters: map[string]interface{}{
			"sampleCount":       1,
			"aspectRatio":       "16:9",
			"safetyFilterLevel": "block_some",
			"personGeneration":  "dont_allow",
		},
	}
	resp, err := c.svc.Projects.Locations.Publishers.Models.Predict(c.endpoint, req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("no image returned")
	}
	pred, ok := resp.Predictions[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected prediction type %T", resp.Predictions[0])
	}
	encoded, _ := pred["bytesBase64Encoded"].(string)
	if encoded == "" {
		return nil, fmt.Errorf("prediction has no image data")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func illustrationPrompt(scene string) string {
	return "Storybook illustration, soft painterly style, no text: " + strings.TrimSpace(scene)
}
