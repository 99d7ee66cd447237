package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/goinforme"
	"github.com/brunobiangulo/goinforme/export"
	"github.com/brunobiangulo/goinforme/store"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections [file.pdf]",
	Short: "Print the located report sections without calling the model",
	Args:  cobra.ExactArgs(1),
	RunE:  runSections,
}

var processCmd = &cobra.Command{
	Use:   "process [file.pdf]",
	Short: "Extract the record from a report and store it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var exportCmd = &cobra.Command{
	Use:   "export [out.xlsx]",
	Short: "Write every stored result to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(exportCmd)
}

func runSections(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	text, fresh, err := e.Sections(cmd.Context(), filepath.Base(args[0]), data)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), describe(err))
		return err
	}

	source := "cache"
	if fresh {
		source = "extracted"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (%s)\n", okMark("ok"), args[0], source)
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := e.Process(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", label(path), describe(err))
		var ue *goinforme.UpstreamError
		if errors.As(err, &ue) && ue.Raw != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  response: %s\n", ue.Raw)
		}
		return err
	}

	out, err := store.Marshal(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", okMark("ok"), label(path))
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	results, err := e.Results(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := export.WriteWorkbook(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %d rows to %s\n", okMark("ok"), len(results), args[0])
	return nil
}
