package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"infra-cli/internal/config"
	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/prompt"
)

// Prompter asks the developer for selections.
type Prompter interface {
	Notify(level prompt.Level, format string, args ...interface{})
	ChooseOne(title string, options []string) (string, error)
	ChooseMany(title string, options []string) ([]string, error)
	Confirm(question string) (bool, error)
	Ask(label string) (string, error)
}

// Backend is the provisioning API used by the orchestrator.
type Backend interface {
	ListBranches(ctx context.Context) ([]string, error)
	ListServices(ctx context.Context) ([]string, error)
	ListStableEnvironments(ctx context.Context) ([]string, error)
	Create(ctx context.Context, req *models.EnvironmentRequest) (map[string]interface{}, error)
	Destroy(ctx context.Context, req *models.DestroyPayload) (map[string]interface{}, error)
}

/**
 * Options of one orchestrated run
 * @property {models.Variant} Variant - branch or backend
 * @property {string} Developer - Developer identity, required by the branch variant
 * @property {string} Services - Comma-separated services, empty means ask
 * @property {string} Branch - Branch to deploy (branch variant)
 * @property {string} Environment - Environment name (backend variant)
 * @property {bool} Ephemeral - Ephemeral or stable environment (backend variant)
 * @property {bool} Yes - Skip the review confirmation
 * @property {bool} Hold - Keep the session until ctx is done (branch variant)
 * @property {bool} DestroyOnExit - Request teardown when the held session ends
 */
type RunOptions struct {
	Variant       models.Variant
	Developer     string
	Services      string
	Branch        string
	Environment   string
	Ephemeral     bool
	Yes           bool
	Hold          bool
	DestroyOnExit bool
}

// Orchestrator drives the create flows: gather, validate, tunnel, review, submit, hold.
type Orchestrator struct {
	backend  Backend
	tunnel   TunnelSupervisor
	prompter Prompter
	session  *Session
	out      io.Writer
	// teardownTimeout bounds the destroy request sent after the session ends.
	teardownTimeout time.Duration
}

func NewOrchestrator(backend Backend, tunnel TunnelSupervisor, prompter Prompter, out io.Writer) *Orchestrator {
	return &Orchestrator{
		backend:         backend,
		tunnel:          tunnel,
		prompter:        prompter,
		session:         NewSession(tunnel),
		out:             out,
		teardownTimeout: 30 * time.Second,
	}
}

func (o *Orchestrator) Session() *Session {
	return o.session
}

type selectionLists struct {
	services     []string
	branches     []string
	environments []string
}

/**
 * Run one create flow
 * @param {context.Context} ctx - Cancelled by SIGINT/SIGTERM, ends a held session
 * @param {RunOptions} opts - Variant and flag values
 * @returns {map[string]interface{}} Backend response
 * @returns {error} ErrCancelled when the review is declined, prompt.ErrInvalidSelection
 *   for invalid flags, or the first tunnel/backend error
 * @description
 * - Flags given for the variant select automatic mode, partial flags are rejected
 * - The request is submitted exactly once
 * - A tunnel launched by the branch variant is terminated when Run returns
 */
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (map[string]interface{}, error) {
	req := &models.EnvironmentRequest{
		Variant:     opts.Variant,
		Developer:   opts.Developer,
		Environment: opts.Environment,
		Ephemeral:   opts.Ephemeral,
	}
	if err := checkFlags(opts); err != nil {
		return nil, err
	}
	if opts.Variant == models.VariantBranch {
		if err := config.Require(map[string]string{"DEVELOPER": opts.Developer}); err != nil {
			return nil, err
		}
	}

	lists, err := o.gather(ctx, opts.Variant)
	if err != nil {
		return nil, err
	}
	if err := o.selectValues(opts, req, lists); err != nil {
		return nil, err
	}
	if err := validateRequest(req, lists); err != nil {
		return nil, err
	}

	if req.Variant == models.VariantBranch {
		o.prompter.Notify(prompt.LevelInfo, "Launching tunnel...")
		defer o.stopTunnel()
		addr, err := o.tunnel.PublicAddress(ctx)
		if err != nil {
			return nil, err
		}
		req.PublicAddress = addr
	}
	o.session.SetRequest(req)

	o.review(req)
	if !opts.Yes {
		ok, err := o.prompter.Confirm("Do you want to continue?")
		if err != nil {
			return nil, err
		}
		if !ok {
			o.prompter.Notify(prompt.LevelWarn, "Operation cancelled by the user.")
			return nil, ErrCancelled
		}
	}

	o.printJSON("Payload:", req.Payload())
	resp, err := o.backend.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	o.session.SetResponse(resp)
	o.printJSON("Response from provisioning service:", resp)
	o.prompter.Notify(prompt.LevelSuccess, "Environment created and running.")

	if opts.Hold && req.Variant == models.VariantBranch {
		o.prompter.Notify(prompt.LevelInfo, "Press Ctrl+C to exit and shut down the environment.")
		<-ctx.Done()
		o.prompter.Notify(prompt.LevelWarn, "Environment stopped.")
		if opts.DestroyOnExit {
			o.destroyAfterSession(req, resp)
		}
	}
	return resp, nil
}

func checkFlags(opts RunOptions) error {
	switch opts.Variant {
	case models.VariantBranch:
		if (opts.Services == "") != (opts.Branch == "") {
			return fmt.Errorf("%w: --services and --branch must be provided together", prompt.ErrInvalidSelection)
		}
	case models.VariantBackend:
		if (opts.Services == "") != (opts.Environment == "") {
			return fmt.Errorf("%w: --environment and --services must be provided together", prompt.ErrInvalidSelection)
		}
	default:
		return fmt.Errorf("unknown variant '%s'", opts.Variant)
	}
	return nil
}

// gather 获取服务端提供的可选列表
func (o *Orchestrator) gather(ctx context.Context, variant models.Variant) (*selectionLists, error) {
	o.prompter.Notify(prompt.LevelInfo, "Requesting available services...")
	services, err := o.backend.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	lists := &selectionLists{services: services}
	if variant == models.VariantBranch {
		o.prompter.Notify(prompt.LevelInfo, "Requesting available branches...")
		if lists.branches, err = o.backend.ListBranches(ctx); err != nil {
			return nil, err
		}
	} else {
		o.prompter.Notify(prompt.LevelInfo, "Requesting available stable environments...")
		if lists.environments, err = o.backend.ListStableEnvironments(ctx); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

func (o *Orchestrator) selectValues(opts RunOptions, req *models.EnvironmentRequest, lists *selectionLists) error {
	if opts.Services != "" {
		req.Services = prompt.SplitList(opts.Services)
		req.Branch = strings.TrimSpace(opts.Branch)
		req.Environment = strings.TrimSpace(opts.Environment)
		return nil
	}

	var err error
	if req.Variant == models.VariantBranch {
		if req.Services, err = o.prompter.ChooseMany("Select local services", lists.services); err != nil {
			return err
		}
		req.Branch, err = o.prompter.ChooseOne("Select a frontend branch to deploy", lists.branches)
		return err
	}

	if req.Ephemeral, err = o.prompter.Confirm("Is this environment ephemeral?"); err != nil {
		return err
	}
	if req.Ephemeral {
		if req.Environment, err = o.prompter.Ask("Environment"); err != nil {
			return err
		}
	} else if req.Environment, err = o.prompter.ChooseOne("Select a stable environment", lists.environments); err != nil {
		return err
	}
	req.Services, err = o.prompter.ChooseMany("Select services to deploy", lists.services)
	return err
}

/**
 * Check the request against the server-provided lists
 * @returns {error} Wraps prompt.ErrInvalidSelection
 */
func validateRequest(req *models.EnvironmentRequest, lists *selectionLists) error {
	if len(req.Services) == 0 {
		return fmt.Errorf("%w: no services selected", prompt.ErrInvalidSelection)
	}
	if err := prompt.ValidateSubset("service", req.Services, lists.services); err != nil {
		return err
	}
	switch req.Variant {
	case models.VariantBranch:
		return prompt.ValidateSubset("branch", []string{req.Branch}, lists.branches)
	case models.VariantBackend:
		if req.Environment == "" {
			return fmt.Errorf("%w: environment name is required", prompt.ErrInvalidSelection)
		}
		if !req.Ephemeral {
			return prompt.ValidateSubset("stable environment", []string{req.Environment}, lists.environments)
		}
	}
	return nil
}

func (o *Orchestrator) review(req *models.EnvironmentRequest) {
	o.prompter.Notify(prompt.LevelInfo, "")
	o.prompter.Notify(prompt.LevelInfo, "Review your configuration:")
	if req.Variant == models.VariantBranch {
		o.prompter.Notify(prompt.LevelInfo, "  Developer:       %s", req.Developer)
		o.prompter.Notify(prompt.LevelInfo, "  Services:        %s", strings.Join(req.Services, ", "))
		o.prompter.Notify(prompt.LevelInfo, "  Branch:          %s", req.Branch)
		o.prompter.Notify(prompt.LevelInfo, "  Tunnel endpoint: %s", req.PublicAddress)
		return
	}
	ephemeral := "No"
	if req.Ephemeral {
		ephemeral = "Yes"
	}
	o.prompter.Notify(prompt.LevelInfo, "  Ephemeral:          %s", ephemeral)
	o.prompter.Notify(prompt.LevelInfo, "  Environment:        %s", req.Environment)
	o.prompter.Notify(prompt.LevelInfo, "  Services to deploy: %s", strings.Join(req.Services, ", "))
}

func (o *Orchestrator) printJSON(title string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Warnf("Failed to encode %s: %v", title, err)
		return
	}
	o.prompter.Notify(prompt.LevelInfo, "")
	o.prompter.Notify(prompt.LevelInfo, title)
	fmt.Fprintln(o.out, string(data))
}

func (o *Orchestrator) stopTunnel() {
	if err := o.tunnel.Terminate(); err != nil {
		logger.Errorf("Failed to stop tunnel: %v", err)
		o.prompter.Notify(prompt.LevelError, "Failed to stop tunnel: %v", err)
	}
}

// destroyAfterSession 会话结束后请求销毁环境，失败只记录
func (o *Orchestrator) destroyAfterSession(req *models.EnvironmentRequest, resp map[string]interface{}) {
	name := req.Environment
	if v, ok := resp["environment"].(string); ok && v != "" {
		name = v
	}
	if name == "" {
		o.prompter.Notify(prompt.LevelWarn, "Environment name unknown, skipping teardown.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.teardownTimeout)
	defer cancel()
	if _, err := o.backend.Destroy(ctx, &models.DestroyPayload{Developer: req.Developer, Environment: name}); err != nil {
		logger.Errorf("Failed to destroy environment %s: %v", name, err)
		o.prompter.Notify(prompt.LevelError, "Failed to destroy environment %s: %v", name, err)
		return
	}
	o.prompter.Notify(prompt.LevelSuccess, "Environment %s destroyed.", name)
}

/**
 * Destroy an environment
 * @param {context.Context} ctx - Request context
 * @param {string} developer - Developer identity
 * @param {string} environment - Environment name, empty means ask
 * @param {bool} yes - Skip the confirmation
 * @returns {map[string]interface{}} Backend response
 * @returns {error} ErrCancelled when declined
 */
func (o *Orchestrator) Destroy(ctx context.Context, developer, environment string, yes bool) (map[string]interface{}, error) {
	var err error
	if environment == "" {
		if environment, err = o.prompter.Ask("Environment to destroy"); err != nil {
			return nil, err
		}
	}
	if !yes {
		ok, err := o.prompter.Confirm(fmt.Sprintf("Destroy environment '%s'?", environment))
		if err != nil {
			return nil, err
		}
		if !ok {
			o.prompter.Notify(prompt.LevelWarn, "Operation cancelled by the user.")
			return nil, ErrCancelled
		}
	}
	resp, err := o.backend.Destroy(ctx, &models.DestroyPayload{Developer: developer, Environment: environment})
	if err != nil {
		return nil, err
	}
	o.printJSON("Response from provisioning service:", resp)
	o.prompter.Notify(prompt.LevelSuccess, "Environment %s destroyed.", environment)
	return resp, nil
}

// IsCancelled reports a declined confirmation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
