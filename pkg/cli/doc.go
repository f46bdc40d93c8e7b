/*
Package cli provides command-line helpers for the trafficwatch command.

Output Formatting:

Commands print results as text, JSON or CSV. Values implementing Table
render as rows in text and CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, records); err != nil {
		return err
	}

Errors:

ConfigError and CommandError classify failures; ExitCode maps them to the
process exit status.

Signal Handling:

	ctx, force := cli.SetupSignalHandler(logger)
	<-ctx.Done() // first SIGINT/SIGTERM: drain
	<-force      // second: stop waiting
*/
package cli
