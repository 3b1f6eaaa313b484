// Package team declares the answermesh agent hierarchy: a manager that
// fetches task files and delegates to a web researcher and a chess player.
package team

import (
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/hupe1980/answermesh/agent"
	"github.com/hupe1980/answermesh/config"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/model/anthropic"
	"github.com/hupe1980/answermesh/model/openai"
	"github.com/hupe1980/answermesh/tool"
	"github.com/hupe1980/answermesh/tool/chess"
	"github.com/hupe1980/answermesh/tool/media"
	"github.com/hupe1980/answermesh/tool/taskfile"
	"github.com/hupe1980/answermesh/tool/web"
)

// Agent names.
const (
	Manager     = "manager"
	Researcher  = "researcher"
	ChessPlayer = "chess_player"
)

// ErrUnsupportedProvider is returned for an unknown model provider.
var ErrUnsupportedProvider = errors.New("unsupported model provider")

// ModelFactory creates a backend model for a model id.
type ModelFactory func(modelID string) (model.Model, error)

// NewModelFactory returns the factory for the configured provider.
func NewModelFactory(s *config.Settings) (ModelFactory, error) {
	switch s.ModelProvider {
	case config.ProviderOpenRouter:
		return func(id string) (model.Model, error) {
			return openai.NewModel(func(o *openai.Options) {
				o.Model = id
				o.Temperature = s.Temperature
				o.APIKey = s.OpenRouterAPIKey.Value()
				o.BaseURL = s.OpenRouterBaseURL
			}), nil
		}, nil
	case config.ProviderAnthropic:
		return func(id string) (model.Model, error) {
			return anthropic.NewModel(func(o *anthropic.Options) {
				o.Model = anthropicsdk.Model(id)
				o.Temperature = s.Temperature
				o.APIKey = s.AnthropicAPIKey.Value()
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, s.ModelProvider)
	}
}

// Deps are the collaborators shared by every agent tree.
type Deps struct {
	Settings *config.Settings
	// NewModel creates the backend of each agent.
	NewModel ModelFactory
	// Fetcher downloads task attachments for the manager.
	Fetcher taskfile.Fetcher
	// Generator serves media understanding and board recognition.
	Generator media.Generator
	// Fs is where downloaded files are read from. Defaults to the OS
	// filesystem.
	Fs afero.Fs
	// EngineLimiter throttles chess engine lookups across every tree built
	// from the blueprints. Defaults to chess.NewEngineLimiter.
	EngineLimiter *rate.Limiter
}

// Blueprints returns the three agent blueprints.
func Blueprints(d Deps) []agent.Blueprint {
	s := d.Settings
	fs := d.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	limiter := d.EngineLimiter
	if limiter == nil {
		limiter = chess.NewEngineLimiter()
	}

	modelFor := func(id string) func() (model.Model, error) {
		return func() (model.Model, error) { return d.NewModel(id) }
	}

	return []agent.Blueprint{
		{
			Name:        Manager,
			Description: "Answers benchmark questions by planning, fetching task files and delegating to its team.",
			Instruction: "You manage a team of agents. Fetch the task file with get_task_file_tool when a file_name is given. " +
				"Delegate web research, video and audio questions to researcher and chess positions to chess_player. " +
				"Give the final answer with final_answer, formatted exactly as the question requires.",
			NewModel:  modelFor(s.ManagerModel),
			MaxSteps:  s.MaxSteps,
			SubAgents: []string{Researcher, ChessPlayer},
			Tools: func() ([]tool.Tool, error) {
				return []tool.Tool{taskfile.New(d.Fetcher)}, nil
			},
		},
		{
			Name:        Researcher,
			Description: "Searches the web, works with files, and answers questions for you. Give it your query as an argument.",
			NewModel:    modelFor(s.ResearcherModel),
			MaxSteps:    s.MaxSteps,
			Tools: func() ([]tool.Tool, error) {
				search, err := web.NewSearch(s.SerperAPIKey.Value())
				if err != nil {
					return nil, err
				}
				visit, err := web.NewVisit(func(o *web.VisitOptions) { o.MaxOutputLength = web.DefaultMaxOutputLength })
				if err != nil {
					return nil, err
				}
				mediaOpts := func(o *media.Options) {
					o.Model = s.MediaModel
					o.Fs = fs
				}
				return []tool.Tool{
					search,
					visit,
					media.NewVideo(d.Generator, mediaOpts),
					media.NewAudio(d.Generator, mediaOpts),
				}, nil
			},
		},
		{
			Name:        ChessPlayer,
			Description: "Makes a chess move. Give it a query including board image filepath and player turn (black or white).",
			NewModel:    modelFor(s.ChessModel),
			MaxSteps:    s.MaxSteps,
			Tools: func() ([]tool.Tool, error) {
				convertModel, err := d.NewModel(s.ConvertModel)
				if err != nil {
					return nil, err
				}
				return []tool.Tool{
					chess.NewBoardFEN(chess.NewVisionRecognizer(d.Generator, s.MediaModel, fs)),
					chess.NewBestMove(s.ChessEvalURL, func(o *chess.BestMoveOptions) { o.Limiter = limiter }),
					chess.NewConvertMove(convertModel),
				}, nil
			},
		},
	}
}

// NewHierarchy validates and returns the team hierarchy.
func NewHierarchy(d Deps, optFns ...func(o *agent.HierarchyOptions)) (*agent.Hierarchy, error) {
	h, err := agent.NewHierarchy(Blueprints(d), optFns...)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(Manager); err != nil {
		return nil, err
	}
	return h, nil
}
