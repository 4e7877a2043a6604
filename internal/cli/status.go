package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sufield/trustboot/internal/core/domain"
)

type identityView struct {
	Nickname   string    `json:"nickname"`
	Subject    string    `json:"subject"`
	Issuer     string    `json:"issuer,omitempty"`
	SelfSigned bool      `json:"self_signed"`
	Trust      string    `json:"trust"`
	HasKey     bool      `json:"has_key"`
	NotAfter   time.Time `json:"not_after"`
}

type segmentView struct {
	Segment   domain.Segment `json:"segment"`
	Artifacts []string       `json:"artifacts"`
	Error     string         `json:"error,omitempty"`
}

type statusView struct {
	Role       domain.Role    `json:"role"`
	StoreDir   string         `json:"store_dir"`
	Exchange   string         `json:"exchange_dir"`
	Identities []identityView `json:"identities"`
	Segments   []segmentView  `json:"segments"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the identities in the store and the artifacts in the exchange directory",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, secretExisting)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			ids, err := a.store.List(ctx)
			if err != nil {
				return err
			}
			view := statusView{
				Role:       a.cfg.Role,
				StoreDir:   a.store.Dir(),
				Exchange:   a.channel.Root(),
				Identities: make([]identityView, 0, len(ids)),
			}
			for _, id := range ids {
				view.Identities = append(view.Identities, identityView{
					Nickname:   id.Nickname,
					Subject:    id.Subject,
					Issuer:     id.Issuer,
					SelfSigned: id.SelfSigned,
					Trust:      id.Trust.String(),
					HasKey:     id.HasKey,
					NotAfter:   id.NotAfter,
				})
			}
			for _, seg := range domain.Segments() {
				sv := segmentView{Segment: seg}
				names, err := a.channel.List(ctx, seg)
				if err != nil {
					sv.Error = err.Error()
				}
				if names == nil {
					names = []string{}
				}
				sv.Artifacts = names
				view.Segments = append(view.Segments, sv)
			}

			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return writeStatus(cmd.OutOrStdout(), view)
		},
	}
}

func writeStatus(w io.Writer, v statusView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "role %s, store %s, exchange %s\n\n", v.Role, v.StoreDir, v.Exchange)
	fmt.Fprintln(tw, "NICKNAME\tTRUST\tKEY\tISSUER\tNOT AFTER\tSUBJECT")
	for _, id := range v.Identities {
		issuer := id.Issuer
		if id.SelfSigned {
			issuer = "(self)"
		}
		if issuer == "" {
			issuer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			id.Nickname, id.Trust, id.HasKey, issuer, id.NotAfter.UTC().Format(time.DateOnly), id.Subject)
	}
	fmt.Fprintln(tw)
	for _, s := range v.Segments {
		switch {
		case s.Error != "":
			fmt.Fprintf(tw, "%s/\tunavailable: %s\n", s.Segment, s.Error)
		case len(s.Artifacts) == 0:
			fmt.Fprintf(tw, "%s/\t(empty)\n", s.Segment)
		default:
			for _, name := range s.Artifacts {
				fmt.Fprintf(tw, "%s/\t%s\n", s.Segment, name)
			}
		}
	}
	return tw.Flush()
}
