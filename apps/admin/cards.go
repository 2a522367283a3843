package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/mpiangona/core/member"
)

func (cli *commandLine) cardsCommand() *cobra.Command {
	var out string
	var ids []string
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Print the membership cards of the given members (all members by default) to a PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(cmd, out); err != nil {
				return err
			}
			return cli.cards(out, ids)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "the PDF file to write")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "a member id (repeatable)")
	return cmd
}

func (cli *commandLine) cards(out string, ids []string) error {
	ctx := context.Background()
	deps := cli.c.Deps

	var members []member.Member
	if len(ids) == 0 {
		var err error
		if members, err = deps.MemberSvc.Query(ctx, member.QueryFilter{}); err != nil {
			return errors.Wrap(err, "querying members")
		}
	} else {
		for _, id := range ids {
			m, err := deps.MemberSvc.GetByID(ctx, id)
			if err != nil {
				return errors.Wrapf(err, "finding member %s", id)
			}
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		return errors.New("no member to print")
	}

	b, err := deps.Cards.Batch(ctx, members)
	if err != nil {
		return errors.Wrap(err, "generating cards")
	}
	cli.c.Metrics.CardsRendered(len(b.Cards), len(b.Failures))
	if len(b.Cards) == 0 {
		return b.Err()
	}

	f, err := createFile(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := deps.CardRenderer.RenderBatch(f, b); err != nil {
		return errors.Wrap(err, "rendering cards")
	}

	cli.printf("%d card(s) on %d page(s) written to %s\n", len(b.Cards), b.Pages, out)
	if skipped := b.SkippedIDs(); len(skipped) > 0 {
		cli.printf("skipped: %s\n", strings.Join(skipped, ", "))
	}
	return nil
}
