// Package media provides capabilities that let a multimodal Gemini model
// answer questions about videos and audio files.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"google.golang.org/genai"

	"github.com/hupe1980/answermesh/tool"
)

// Capability names.
const (
	VideoName = "VideoUnderstanding"
	AudioName = "AudioUnderstanding"
)

// DefaultModel is the Gemini model used for media understanding.
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Generator is the subset of the genai models service used here.
// *genai.Models implements it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiGenerator creates a Gemini API client.
func NewGeminiGenerator(ctx context.Context, apiKey string) (Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

// Options configures the media capabilities.
type Options struct {
	// Model is the Gemini model name. Defaults to DefaultModel.
	Model string
	// Fs is where local audio files are read from. Defaults to the OS
	// filesystem.
	Fs afero.Fs
}

func defaults(optFns []func(o *Options)) Options {
	opts := Options{Model: DefaultModel, Fs: afero.NewOsFs()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return opts
}

// NewVideo returns the VideoUnderstanding capability.
func NewVideo(gen Generator, optFns ...func(o *Options)) tool.Tool {
	opts := defaults(optFns)

	return tool.NewFunctionTool(VideoName,
		"Prompt a YouTube video with questions to understand its content.",
		[]tool.Input{
			{Name: "youtube_url", Type: tool.TypeString, Description: "The URL of the YouTube video"},
			{Name: "prompt", Type: tool.TypeString, Description: "A question or request regarding the video"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			videoURL, err := tool.StringArg(VideoName, args, "youtube_url")
			if err != nil {
				return nil, err
			}
			prompt, err := tool.StringArg(VideoName, args, "prompt")
			if err != nil {
				return nil, err
			}

			parts := []*genai.Part{
				genai.NewPartFromURI(videoURL, "video/mp4"),
				genai.NewPartFromText(prompt),
			}
			return generate(ctx, gen, opts.Model, parts)
		},
	)
}

// NewAudio returns the AudioUnderstanding capability.
func NewAudio(gen Generator, optFns ...func(o *Options)) tool.Tool {
	opts := defaults(optFns)

	return tool.NewFunctionTool(AudioName,
		"Prompt a local audio file with questions to understand its content.",
		[]tool.Input{
			{Name: "file_path", Type: tool.TypeString, Description: "The local file of the audio"},
			{Name: "prompt", Type: tool.TypeString, Description: "A question or request regarding the audio"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			path, err := tool.StringArg(AudioName, args, "file_path")
			if err != nil {
				return nil, err
			}
			prompt, err := tool.StringArg(AudioName, args, "prompt")
			if err != nil {
				return nil, err
			}

			data, err := afero.ReadFile(opts.Fs, path)
			if err != nil {
				return nil, fmt.Errorf("read audio file: %w", err)
			}

			parts := []*genai.Part{
				genai.NewPartFromText(prompt),
				genai.NewPartFromBytes(data, MIMEType(path, data)),
			}
			return generate(ctx, gen, opts.Model, parts)
		},
	)
}

// generate sends one user turn and returns the response text.
func generate(ctx context.Context, gen Generator, model string, parts []*genai.Part) (string, error) {
	resp, err := gen.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// MIMEType guesses the media type from the file extension, then from the
// content.
func MIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(data)
}
