package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omr-go/jitcore/internal/signal"
)

var protectDemoCmd = &cobra.Command{
	Use:   "protect-demo",
	Short: "Exercise the synchronous fault protection frame",
	Long:  "protect-demo opens a Protect frame and raises a synthetic synchronous fault inside it, printing the category the handler observed and the resulting Protect result.",
	RunE:  runProtectDemo,
}

func init() {
	protectDemoCmd.Flags().String("category", "segv", "fault category to raise: segv|bus|ill|fpe")
	protectDemoCmd.Flags().String("status", "continue-search", "handler status to return: continue-search|continue-execution|exception-return|cooperative-shutdown")
}

func runProtectDemo(cmd *cobra.Command, args []string) error {
	log, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	catName, _ := cmd.Flags().GetString("category")
	statusName, _ := cmd.Flags().GetString("status")

	cat, flags, err := categoryAndFlag(catName)
	if err != nil {
		return err
	}
	status, err := parseHandlerStatus(statusName)
	if err != nil {
		return err
	}

	d := signal.New(signal.WithLogger(log))
	d.Startup()
	defer d.Shutdown()

	result, _, err := d.Protect(context.Background(), func(ctx context.Context) (any, error) {
		return nil, d.RaiseSynchronous(ctx, cat)
	}, func(reported signal.Category) signal.HandlerStatus {
		fmt.Printf("handler observed %s\n", reported)
		return status
	}, flags)
	if err != nil {
		return err
	}

	fmt.Printf("protect result: %s\n", result)
	return nil
}

func categoryAndFlag(name string) (signal.Category, signal.Flags, error) {
	switch name {
	case "segv":
		return signal.CategorySIGSEGV, signal.FlagSEGV, nil
	case "bus":
		return signal.CategorySIGBUS, signal.FlagBUS, nil
	case "ill":
		return signal.CategorySIGILL, signal.FlagILL, nil
	case "fpe":
		return signal.CategorySIGFPE, signal.FlagFPE, nil
	default:
		return signal.CategoryNone, 0, fmt.Errorf("unknown category %q", name)
	}
}

func parseHandlerStatus(name string) (signal.HandlerStatus, error) {
	switch name {
	case "continue-search":
		return signal.ContinueSearch, nil
	case "continue-execution":
		return signal.ContinueExecution, nil
	case "exception-return":
		return signal.ExceptionReturn, nil
	case "cooperative-shutdown":
		return signal.CooperativeShutdown, nil
	default:
		return 0, fmt.Errorf("unknown handler status %q", name)
	}
}
