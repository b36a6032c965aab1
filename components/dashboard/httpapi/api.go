// Package httpapi adapts dashboard commands and queries to request/response
// calls used by the HTTP transports.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/dashboardai/dashboardai/components/dashboard"
	"github.com/dashboardai/dashboardai/components/dashboard/commands"
	"github.com/dashboardai/dashboardai/components/dashboard/queries"
	"github.com/dashboardai/dashboardai/pkg/backend"
)

// Executor is what the router needs from the dashboard.
type Executor interface {
	Layout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error)
	AddWidget(ctx context.Context, input commands.AddWidgetInput) (dashboard.Widget, error)
	RemoveWidget(ctx context.Context, input commands.RemoveWidgetInput) error
	UpdateLayouts(ctx context.Context, input commands.UpdateLayoutsInput) (dashboard.Layout, error)
	MoveWidget(ctx context.Context, input commands.MoveWidgetInput) (dashboard.Widget, error)
	ChartHTML(ctx context.Context, input queries.ChartHTMLInput) (string, error)
	GenerateChart(ctx context.Context, input commands.ImportGeneratedChartInput) (dashboard.Widget, error)
	Ask(ctx context.Context, input queries.AskInput) (AssistantReply, error)
	Preview(ctx context.Context, sheet backend.Spreadsheet) (backend.SheetPreview, error)
}

// AssistantReply is the outcome of a question. Chart is set when the question
// asked for a chart and one was added to the dashboard.
type AssistantReply struct {
	Answer      string            `json:"answer,omitempty"`
	AnswerError string            `json:"answer_error,omitempty"`
	Chart       *dashboard.Widget `json:"chart,omitempty"`
	ChartError  string            `json:"chart_error,omitempty"`
}

// AIClient is the AI service behind chart generation and questions.
type AIClient interface {
	backend.ChartClient
	backend.AssistantClient
}

// Commands groups the commanders and queriers an Executor runs.
type Commands struct {
	Add      gocommand.Commander[commands.AddWidgetInput]
	Remove   gocommand.Commander[commands.RemoveWidgetInput]
	Layouts  gocommand.Commander[commands.UpdateLayoutsInput]
	Move     gocommand.Commander[commands.MoveWidgetInput]
	Generate gocommand.Commander[commands.ImportGeneratedChartInput]

	Layout  gocommand.Querier[dashboard.ViewerContext, dashboard.Layout]
	Widget  gocommand.Querier[queries.WidgetInput, dashboard.Widget]
	Chart   gocommand.Querier[queries.ChartHTMLInput, string]
	Ask     gocommand.Querier[queries.AskInput, string]
	Preview gocommand.Querier[backend.Spreadsheet, backend.SheetPreview]
}

// CommandExecutor runs writes through commanders, then reads the result
// back through the queriers.
type CommandExecutor struct {
	cmds  Commands
	newID func(kind dashboard.WidgetKind) string
}

var _ Executor = (*CommandExecutor)(nil)

// NewCommandExecutor builds an executor over cmds.
func NewCommandExecutor(cmds Commands) *CommandExecutor {
	return &CommandExecutor{
		cmds: cmds,
		newID: func(kind dashboard.WidgetKind) string {
			return string(kind) + "_" + uuid.NewString()
		},
	}
}

// Wire builds the standard command set around one service.
func Wire(svc *dashboard.Service, renderer *dashboard.ChartRenderer, ai AIClient, telemetry commands.Telemetry) *CommandExecutor {
	cmds := Commands{
		Add:     commands.NewAddWidgetCommand(svc, telemetry),
		Remove:  commands.NewRemoveWidgetCommand(svc, telemetry),
		Layouts: commands.NewUpdateLayoutsCommand(svc, telemetry),
		Move:    commands.NewMoveWidgetCommand(svc, telemetry),
		Layout:  queries.NewLayoutQuery(svc),
		Widget:  queries.NewWidgetQuery(svc),
		Chart:   queries.NewChartHTMLQuery(svc, renderer),
	}
	if ai != nil {
		cmds.Generate = commands.NewImportGeneratedChartCommand(ai, nil, svc, telemetry)
		cmds.Ask = queries.NewAskQuery(ai)
		cmds.Preview = queries.NewPreviewQuery(ai, 0)
	}
	return NewCommandExecutor(cmds)
}

var errUnsupported = errors.New("httpapi: operation not configured")

func (e *CommandExecutor) Layout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error) {
	if e.cmds.Layout == nil {
		return dashboard.Layout{}, errUnsupported
	}
	return e.cmds.Layout.Query(ctx, viewer)
}

func (e *CommandExecutor) AddWidget(ctx context.Context, input commands.AddWidgetInput) (dashboard.Widget, error) {
	if e.cmds.Add == nil {
		return dashboard.Widget{}, errUnsupported
	}
	if input.Spec.ID == "" {
		input.Spec.ID = e.newID(input.Spec.Kind)
	}
	if err := e.cmds.Add.Execute(ctx, input); err != nil {
		return dashboard.Widget{}, err
	}
	return e.widget(ctx, input.Viewer, input.Spec.ID)
}

func (e *CommandExecutor) RemoveWidget(ctx context.Context, input commands.RemoveWidgetInput) error {
	if e.cmds.Remove == nil {
		return errUnsupported
	}
	return e.cmds.Remove.Execute(ctx, input)
}

func (e *CommandExecutor) UpdateLayouts(ctx context.Context, input commands.UpdateLayoutsInput) (dashboard.Layout, error) {
	if e.cmds.Layouts == nil {
		return dashboard.Layout{}, errUnsupported
	}
	if err := e.cmds.Layouts.Execute(ctx, input); err != nil {
		return dashboard.Layout{}, err
	}
	return e.Layout(ctx, input.Viewer)
}

func (e *CommandExecutor) MoveWidget(ctx context.Context, input commands.MoveWidgetInput) (dashboard.Widget, error) {
	if e.cmds.Move == nil {
		return dashboard.Widget{}, errUnsupported
	}
	if err := e.cmds.Move.Execute(ctx, input); err != nil {
		return dashboard.Widget{}, err
	}
	return e.widget(ctx, input.Viewer, input.WidgetID)
}

func (e *CommandExecutor) ChartHTML(ctx context.Context, input queries.ChartHTMLInput) (string, error) {
	if e.cmds.Chart == nil {
		return "", errUnsupported
	}
	return e.cmds.Chart.Query(ctx, input)
}

func (e *CommandExecutor) GenerateChart(ctx context.Context, input commands.ImportGeneratedChartInput) (dashboard.Widget, error) {
	if e.cmds.Generate == nil {
		return dashboard.Widget{}, errUnsupported
	}
	if input.WidgetID == "" {
		input.WidgetID = e.newID(dashboard.KindChart)
	}
	if err := e.cmds.Generate.Execute(ctx, input); err != nil {
		return dashboard.Widget{}, err
	}
	return e.widget(ctx, input.Viewer, input.WidgetID)
}

// Ask answers a question. A chart question with a spreadsheet attached also
// generates a chart widget; both requests run concurrently and either may
// fail without discarding the other.
func (e *CommandExecutor) Ask(ctx context.Context, input queries.AskInput) (AssistantReply, error) {
	if e.cmds.Ask == nil {
		return AssistantReply{}, errUnsupported
	}
	if strings.TrimSpace(input.Question) == "" {
		return AssistantReply{}, queries.ErrEmptyQuestion
	}

	var (
		reply    AssistantReply
		chartErr error
		wg       sync.WaitGroup
	)
	if e.cmds.Generate != nil && !input.Sheet.Empty() && queries.IsChartRequest(input.Question) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			widget, err := e.GenerateChart(ctx, commands.ImportGeneratedChartInput{
				Viewer:         input.Viewer,
				Prompt:         input.Question,
				SpreadsheetURL: input.Sheet.URL,
			})
			if err != nil {
				chartErr = err
				return
			}
			reply.Chart = &widget
		}()
	}
	answer, err := e.cmds.Ask.Query(ctx, input)
	wg.Wait()

	if chartErr != nil {
		reply.ChartError = chartErr.Error()
	}
	if err != nil {
		if reply.Chart == nil {
			return AssistantReply{}, err
		}
		reply.AnswerError = err.Error()
		return reply, nil
	}
	reply.Answer = answer
	return reply, nil
}

func (e *CommandExecutor) Preview(ctx context.Context, sheet backend.Spreadsheet) (backend.SheetPreview, error) {
	if e.cmds.Preview == nil {
		return backend.SheetPreview{}, errUnsupported
	}
	return e.cmds.Preview.Query(ctx, sheet)
}

func (e *CommandExecutor) widget(ctx context.Context, viewer dashboard.ViewerContext, id string) (dashboard.Widget, error) {
	if e.cmds.Widget == nil {
		return dashboard.Widget{ID: id}, nil
	}
	return e.cmds.Widget.Query(ctx, queries.WidgetInput{Viewer: viewer, WidgetID: id})
}

// StatusFor maps dashboard and backend errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrInvalidWidget), errors.Is(err, dashboard.ErrNotChart),
		errors.Is(err, queries.ErrEmptyQuestion), errors.Is(err, queries.ErrNoSpreadsheet):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrDuplicateWidget):
		return http.StatusConflict
	case errors.Is(err, errUnsupported):
		return http.StatusNotImplemented
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrUnexpectedShape):
		return http.StatusBadGateway
	default:
		var remote *backend.RemoteError
		if errors.As(err, &remote) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}
