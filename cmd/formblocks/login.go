package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/feedback"
	"github.com/goliatone/go-formblocks/pkg/fetcher"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/permission"
	"github.com/goliatone/go-formblocks/pkg/prompt"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/twostep"
)

var errNotAnonymous = errors.New("formblocks: login needs an anonymous form")

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "login <form>",
		Short: "Sign in on the terminal through an anonymous login form",
		Long: "Prompts the fields of an anonymous form, submits them and, when the\n" +
			"backend asks for it, the two-step verification code. Credentials are\n" +
			"kept in the configured store; without Redis they last for the run only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.form(args[0])
			if err != nil {
				return err
			}
			if assembler.Variant(f.Variant) != assembler.VariantAnonymous {
				return fmt.Errorf("%w: %s is %s", errNotAnonymous, f.Name, f.Variant)
			}
			if locale == "" {
				locale = a.store.Language(ctx)
			}
			return runLogin(ctx, a, loginRequest{
				endpoint:    f.ConfigEndpoint,
				itemID:      f.ItemID,
				post:        f.Endpoints.Post,
				twoStep:     f.TwoStep,
				fingerprint: machineFingerprint(),
				opts:        a.renderer.Options(locale),
				out:         cmd.ErrOrStderr(),
			}, nil)
		},
	}
	cmd.Flags().StringVar(&locale, "lang", "", "locale for labels and messages")
	return cmd
}

type loginRequest struct {
	endpoint    string
	itemID      string
	post        string
	twoStep     bool
	fingerprint string
	opts        render.RenderOptions
	out         io.Writer
}

// runLogin fetches the login form, prompts it and submits the answers.
// driver replaces the survey driver when set.
func runLogin(ctx context.Context, a *app, req loginRequest, driver prompt.Driver) error {
	cfg, err := fetcher.New(a.client, fetcher.WithLogger(a.log.WithName("fetcher"))).Fetch(ctx, fetcher.Request{
		Endpoint:    req.endpoint,
		ItemID:      req.itemID,
		Fingerprint: req.fingerprint,
	})
	if err != nil {
		return err
	}
	blocks := permission.Stamp(cfg.Blocks, false, "", cfg.Permission)

	presenter := feedback.PresenterFunc(func(_ context.Context, msg feedback.Message) {
		text := msg.Text
		if text == "" {
			text = req.opts.T(msg.Key)
		}
		fmt.Fprintln(req.out, text)
	})
	prompter := prompt.New(
		prompt.WithDriver(driver),
		prompt.WithRenderOptions(req.opts),
		prompt.WithChecker(a.client))

	elements, err := prompter.Form(ctx, blocks, fields.ModeNoUser)
	if err != nil {
		return err
	}

	state := formstate.New(a.client, formstate.Endpoints{Post: req.post},
		formstate.Anonymous(),
		formstate.WithFingerprint(req.fingerprint),
		formstate.WithPresenter(presenter),
		formstate.WithMetrics(a.metrics),
		formstate.WithLogger(a.log.WithName("formstate")))
	body, err := state.Submit(ctx, formstate.Submission{Elements: elements, Submitter: assembler.ActionSubmit})
	if err != nil {
		return err
	}
	if !req.twoStep {
		fmt.Fprintln(req.out, "submitted")
		return nil
	}

	flow := twostep.New(a.client, req.fingerprint,
		twostep.WithPresenter(presenter),
		twostep.WithLogger(a.log.WithName("twostep")))
	status, err := flow.Run(ctx, body, prompter)
	if err != nil {
		return err
	}
	fmt.Fprintf(req.out, "login %s, session %s\n", status, a.store.SessionID(ctx))
	return nil
}
