package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/session"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		itemID string
		locale string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render <form>",
		Short: "Render one configured form to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, opts, session.NavigatorFunc(func(_ context.Context, path string) error {
				return fmt.Errorf("formblocks: session expired, sign in again (%s)", path)
			}))
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.form(args[0])
			if err != nil {
				return err
			}
			form, err := f.Assembler()
			if err != nil {
				return err
			}
			if itemID != "" {
				form.ItemID = itemID
			}
			if locale == "" {
				locale = a.store.Language(ctx)
			}

			fp := machineFingerprint()
			req := assembler.Request{Locale: locale, Fingerprint: fp}
			if form.ItemID != "" && form.Endpoints.Get != "" {
				state := formstate.New(a.client, form.Endpoints,
					formstate.WithSession(a.session),
					formstate.WithResolver(fingerprint.Static(fp)),
					formstate.WithLogger(a.log.WithName("formstate")))
				if err := state.SetIdentifier(ctx, form.ItemID); err != nil {
					return err
				}
				req.Values = state.Inputs()
			}

			res, err := a.assembler.Assemble(ctx, form, req)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.HTML)
				return err
			}
			return os.WriteFile(output, []byte(res.HTML), 0o644)
		},
	}
	cmd.Flags().StringVar(&itemID, "id", "", "record to load into the form")
	cmd.Flags().StringVar(&locale, "lang", "", "locale for labels and messages")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the HTML to a file instead of stdout")
	return cmd
}
