package main

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/mpiangona/core/report"
)

func (cli *commandLine) reportCommand() *cobra.Command {
	var period, format, out, to string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the financial report of the trailing month, trimester or year (csv or pdf), or email it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, ok := report.ParsePeriod(period)
			if !ok {
				return fmt.Errorf("unknown period %q", period)
			}
			if to != "" {
				return cli.sendReport(kind, to)
			}
			if err := requireFlag(cmd, out); err != nil {
				return err
			}
			return cli.exportReport(kind, format, out)
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", string(report.PeriodMonth), "month, trimester or year")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "the file to write")
	cmd.Flags().StringVar(&to, "to", "", "comma separated recipients; the PDF report is emailed instead of written")
	return cmd
}

func (cli *commandLine) exportReport(kind report.PeriodKind, format, out string) error {
	ctx := context.Background()
	svc := cli.c.Deps.ReportSvc

	var buf bytes.Buffer
	switch format {
	case "csv":
		cs, _, _, err := svc.ForPeriod(ctx, kind)
		if err != nil {
			return errors.Wrap(err, "querying contributions")
		}
		if err = report.WriteCSV(&buf, cs, report.Summarize(cs)); err != nil {
			return errors.Wrap(err, "writing csv")
		}
	case "pdf":
		if _, err := svc.RenderPeriod(ctx, kind, &buf); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	cli.printf("%s report written to %s\n", kind.Label(), out)
	return nil
}

func (cli *commandLine) sendReport(kind report.PeriodKind, to string) error {
	addrs, err := mail.ParseAddressList(to)
	if err != nil {
		return errors.Wrap(err, "parsing recipients")
	}
	recipients := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		recipients = append(recipients, *a)
	}
	if err = cli.c.Deps.ReportSvc.Send(context.Background(), kind, recipients); err != nil {
		return err
	}
	cli.printf("%s report sent to %d recipient(s)\n", kind.Label(), len(recipients))
	return nil
}
