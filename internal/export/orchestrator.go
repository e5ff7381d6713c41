package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/chat-exporter/internal/save"
	"github.com/jonathan/chat-exporter/internal/types"
)

// DefaultBaseURL is the host the exporter drives when none is configured.
const DefaultBaseURL = "https://chatgpt.com"

var (
	// ErrNoConversations is returned when the scan finds nothing to export.
	ErrNoConversations = errors.New("no conversations found")
	// ErrNothingToFinalize is returned when finalize runs without a
	// finished run holding results.
	ErrNothingToFinalize = errors.New("no finished export to finalize")
	// ErrRunInProgress is returned when a new run is started while another
	// one is still live.
	ErrRunInProgress = errors.New("an export run is already in progress")
	// ErrNoRun is returned by resume and stop when no run state exists.
	ErrNoRun = errors.New("no export run found")
)

// Store persists run state. Load returns nil when no state is recorded.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	Reset(ctx context.Context) error
}

// Browser is the live page the run drives.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	OuterHTML(ctx context.Context) (string, error)
	// WaitReady blocks until conversation content has rendered, within a
	// bounded poll budget.
	WaitReady(ctx context.Context) error
}

// Converter turns captured page markup into Markdown.
type Converter interface {
	ConvertHTML(htmlStr string) (string, error)
}

// Scanner collects the conversation list from the current page.
type Scanner interface {
	Collect(ctx context.Context) ([]types.ConversationRef, error)
}

// StatusFunc receives progress updates during a run.
type StatusFunc func(mode Mode, done, total int)

// FinalizeSummary reports the outcome of writing results to disk.
type FinalizeSummary struct {
	Saved   int
	Failed  int
	Skipped int
}

// Orchestrator drives an export run end to end. Conversations are
// processed strictly one at a time; the browser session is a single tab
// and the persisted state assumes a single cursor.
type Orchestrator struct {
	store     Store
	browser   Browser
	converter Converter
	scanner   Scanner
	baseURL   string
	onStatus  StatusFunc
	log       zerolog.Logger
}

// NewOrchestrator wires a run over its collaborators.
func NewOrchestrator(store Store, browser Browser, converter Converter, scanner Scanner, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		browser:   browser,
		converter: converter,
		scanner:   scanner,
		baseURL:   DefaultBaseURL,
		log:       log,
	}
}

// WithBaseURL overrides the host base URL.
func (o *Orchestrator) WithBaseURL(u string) *Orchestrator {
	o.baseURL = strings.TrimSuffix(u, "/")
	return o
}

// WithStatus registers a progress callback.
func (o *Orchestrator) WithStatus(fn StatusFunc) *Orchestrator {
	o.onStatus = fn
	return o
}

// Start begins a new export run. A projectID scopes the run to one
// project's conversation list; empty means the full history. Refuses to
// start while a previous run is still live.
func (o *Orchestrator) Start(ctx context.Context, projectID string, settings types.Settings) error {
	existing, err := o.store.Load(ctx)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsRunning {
		return ErrRunInProgress
	}

	st := NewState(projectID, settings)
	if err := o.store.Save(ctx, st); err != nil {
		return err
	}
	o.log.Info().Str("run_id", st.RunID).Str("project_id", projectID).Msg("export run started")

	if err := o.browser.Navigate(ctx, o.sourceURL(projectID)); err != nil {
		return o.abort(ctx, st, err)
	}
	return o.run(ctx, st)
}

// Resume picks up a persisted run from whatever phase it stopped in. A
// finished run only reports status; finalize is a separate, explicit step.
func (o *Orchestrator) Resume(ctx context.Context) error {
	st, err := o.store.Load(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNoRun
	}

	switch st.Mode {
	case ModeFinished:
		o.report(st)
		o.log.Info().Str("run_id", st.RunID).Msg("run already finished, awaiting finalize")
		return nil
	case ModeInitializing, ModeScanning:
		st.IsRunning = true
		if err := o.store.Save(ctx, st); err != nil {
			return err
		}
		if err := o.browser.Navigate(ctx, o.sourceURL(st.ProjectID)); err != nil {
			return o.abort(ctx, st, err)
		}
		return o.run(ctx, st)
	case ModeProcessing:
		st.IsRunning = true
		if err := o.store.Save(ctx, st); err != nil {
			return err
		}
		o.log.Info().Str("run_id", st.RunID).Int("remaining", st.Remaining()).Msg("resuming export run")
		return o.processLoop(ctx, st)
	default:
		return fmt.Errorf("cannot resume run in mode %q", st.Mode)
	}
}

// run advances a live state through scanning and processing.
func (o *Orchestrator) run(ctx context.Context, st *State) error {
	if err := o.scanAndQueue(ctx, st); err != nil {
		return err
	}
	return o.processLoop(ctx, st)
}

// scanAndQueue collects the conversation list and queues it. An empty
// scan aborts the run rather than producing an empty finished export.
func (o *Orchestrator) scanAndQueue(ctx context.Context, st *State) error {
	st.Mode = ModeScanning
	if err := o.store.Save(ctx, st); err != nil {
		return err
	}
	o.report(st)

	refs, err := o.scanner.Collect(ctx)
	if err != nil {
		return o.abort(ctx, st, err)
	}
	if len(refs) == 0 {
		st.IsRunning = false
		if saveErr := o.store.Save(ctx, st); saveErr != nil {
			o.log.Warn().Err(saveErr).Msg("failed to persist aborted state")
		}
		return ErrNoConversations
	}

	st.Queue = refs
	st.CurrentIndex = 0
	st.Mode = ModeProcessing
	o.log.Info().Int("queued", len(refs)).Msg("scan complete")
	return o.store.Save(ctx, st)
}

// processLoop visits each queued conversation in turn. State is reloaded
// at the top of every iteration so a concurrent stop (another process
// flipping IsRunning) takes effect at the next conversation boundary, and
// saved before every navigation so a crash resumes at the right cursor.
func (o *Orchestrator) processLoop(ctx context.Context, st *State) error {
	for {
		fresh, err := o.store.Load(ctx)
		if err != nil {
			return err
		}
		if fresh == nil {
			return ErrNoRun
		}
		st = fresh
		if !st.IsRunning {
			o.log.Info().Str("run_id", st.RunID).Msg("run stopped")
			return nil
		}
		if st.CurrentIndex >= len(st.Queue) {
			break
		}

		ref := st.Queue[st.CurrentIndex]
		o.report(st)
		o.log.Info().
			Int("index", st.CurrentIndex+1).
			Int("total", len(st.Queue)).
			Str("title", ref.Title).
			Msg("processing conversation")

		if err := o.convertCurrent(ctx, st, ref); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st.Errors = append(st.Errors, ConversionError{
				ConversationID: ref.ID,
				Title:          ref.Title,
				Message:        err.Error(),
			})
			o.log.Warn().Err(err).Str("title", ref.Title).Msg("conversation failed, continuing")
		}

		st.CurrentIndex++
		if err := o.store.Save(ctx, st); err != nil {
			return err
		}
	}

	st.Mode = ModeFinished
	st.IsRunning = false
	if err := o.store.Save(ctx, st); err != nil {
		return err
	}
	o.report(st)
	o.log.Info().
		Int("converted", len(st.Results)).
		Int("failed", len(st.Errors)).
		Msg("export run finished, run finalize to write files")
	return nil
}

// convertCurrent navigates to one conversation, captures its markup and
// converts it, recording the result keyed by conversation ID.
func (o *Orchestrator) convertCurrent(ctx context.Context, st *State, ref types.ConversationRef) error {
	if err := o.browser.Navigate(ctx, o.absoluteURL(ref.Href)); err != nil {
		return err
	}
	if err := o.browser.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// Convert whatever rendered; a partial conversation beats none.
		o.log.Warn().Err(err).Str("title", ref.Title).Msg("content readiness timed out, converting anyway")
	}

	htmlStr, err := o.browser.OuterHTML(ctx)
	if err != nil {
		return err
	}
	markdown, err := o.converter.ConvertHTML(htmlStr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(markdown) == "" {
		return fmt.Errorf("conversation produced no content")
	}

	pageURL, err := o.browser.CurrentURL(ctx)
	if err != nil || pageURL == "" {
		pageURL = o.absoluteURL(ref.Href)
	}

	now := time.Now()
	st.Results[ref.ID] = types.ExportResult{
		Filename: save.GenerateFilename(st.Settings.FilenamePattern, ref.Title, ref.ID),
		Content:  markdown,
		Frontmatter: types.FrontmatterData{
			Title: save.SanitizeTitle(ref.Title),
			URL:   pageURL,
			Date:  now.Format("2006-01-02"),
			Time:  now.Format("150405"),
		},
	}
	return nil
}

// Finalize writes the finished run's results into dir in queue order and
// clears the run state. tagsOverride, when non-empty, replaces the tags
// frozen at export start. Per-file failures are tallied, not fatal.
func (o *Orchestrator) Finalize(ctx context.Context, dir save.Dir, saver *save.Saver, tagsOverride string) (FinalizeSummary, error) {
	var summary FinalizeSummary

	st, err := o.store.Load(ctx)
	if err != nil {
		return summary, err
	}
	if st == nil || st.Mode != ModeFinished || len(st.Results) == 0 {
		return summary, ErrNothingToFinalize
	}

	tags := st.Settings.DefaultTags
	if tagsOverride != "" {
		tags = tagsOverride
	}

	for _, ref := range st.Queue {
		result, ok := st.Results[ref.ID]
		if !ok {
			summary.Skipped++
			continue
		}
		err := saver.SaveMarkdown(ctx, dir, result.Filename, result.Content, save.SaveOptions{
			FrontmatterTemplate: st.Settings.FrontmatterTemplate,
			DefaultTags:         tags,
			Metadata:            result.Frontmatter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			o.log.Warn().Err(err).Str("filename", result.Filename).Msg("failed to save conversation")
			continue
		}
		summary.Saved++
	}

	if err := o.store.Reset(ctx); err != nil {
		o.log.Warn().Err(err).Msg("failed to clear run state after finalize")
	}
	o.log.Info().
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("finalize complete")
	return summary, nil
}

// Stop marks the run as no longer live. A loop in another process sees
// the flag at its next conversation boundary; this process's loop sees it
// on its next state reload.
func (o *Orchestrator) Stop(ctx context.Context) error {
	st, err := o.store.Load(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNoRun
	}
	st.IsRunning = false
	return o.store.Save(ctx, st)
}

// Status returns the current persisted run state, or nil when none exists.
func (o *Orchestrator) Status(ctx context.Context) (*State, error) {
	return o.store.Load(ctx)
}

// report pushes a progress update to the registered callback.
func (o *Orchestrator) report(st *State) {
	if o.onStatus == nil {
		return
	}
	o.onStatus(st.Mode, st.CurrentIndex, len(st.Queue))
}

// abort marks a failed run as not running and returns the causing error.
func (o *Orchestrator) abort(ctx context.Context, st *State, cause error) error {
	st.IsRunning = false
	if err := o.store.Save(ctx, st); err != nil {
		o.log.Warn().Err(err).Msg("failed to persist aborted state")
	}
	return cause
}

// sourceURL is the page holding the conversation list for the run scope.
func (o *Orchestrator) sourceURL(projectID string) string {
	if projectID == "" {
		return o.baseURL + "/"
	}
	return o.baseURL + "/g/" + projectID + "/project"
}

// absoluteURL resolves a scraped href against the base URL.
func (o *Orchestrator) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return o.baseURL + href
}
