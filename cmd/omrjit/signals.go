package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omr-go/jitcore/internal/signal"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print dispatcher state after registering a demo async handler",
	Long:  "signals starts a dispatcher, registers a demo async handler for SIGINT/SIGTERM, and reports which categories currently own the main OS handler.",
	RunE:  runSignals,
}

func runSignals(cmd *cobra.Command, args []string) error {
	log, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	d := signal.New(signal.WithLogger(log))
	d.Startup()
	defer d.Shutdown()

	err = d.SetAsyncSignalHandler(signal.NewAsyncHandlerID(), func(cat signal.Category) signal.HandlerStatus {
		log.Info("received async signal", "category", cat.String())
		return signal.ContinueSearch
	}, signal.FlagINT|signal.FlagTERM)
	if err != nil {
		return err
	}

	for _, cat := range []signal.Category{
		signal.CategorySIGSEGV, signal.CategorySIGBUS, signal.CategorySIGILL, signal.CategorySIGFPE,
		signal.CategorySIGTERM, signal.CategorySIGHUP, signal.CategorySIGINT, signal.CategorySIGQUIT,
		signal.CategorySIGALRM, signal.CategorySIGXFSZ,
	} {
		fmt.Printf("%-8s main-handler-installed=%v ignored=%v count=%d\n",
			cat, d.IsMainSignalHandler(cat), d.IsSignalIgnored(cat), d.SignalCount(cat))
	}
	return nil
}
