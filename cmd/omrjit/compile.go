package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omr-go/jitcore/internal/config"
	"github.com/omr-go/jitcore/internal/ir"
	"github.com/omr-go/jitcore/internal/ir/sample"
	"github.com/omr-go/jitcore/internal/optimizer"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Run a demo strategy over the reference IR",
	Long:  "compile builds a small synthetic method (a foldable add(const,const) plus an optional loop block) and runs a demo strategy over it through the optimizer orchestrator, printing the reported phases.",
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().Bool("with-loop", false, "add a self-looping block so loop-guarded entries run")
	compileCmd.Flags().Bool("hot", false, "mark the compilation as running at hot tier")
}

func runCompile(cmd *cobra.Command, args []string) error {
	log, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	withLoop, _ := cmd.Flags().GetBool("with-loop")
	hot, _ := cmd.Flags().GetBool("hot")

	symRefs := sample.NewSymRefTable()
	comp := sample.NewCompilation(symRefs)
	if hot {
		comp.Hotness = ir.HotnessHot
	}

	cfgGraph := sample.NewCFG(symRefs)
	entry := cfgGraph.AddBlock()
	entry.AddNode(&sample.Node{Op: sample.OpConst, Value: 2})
	entry.AddNode(&sample.Node{Op: sample.OpConst, Value: 3})
	entry.AddNode(&sample.Node{Op: sample.OpAdd, Children: []int{0, 1}})

	if withLoop {
		loopBlock := cfgGraph.AddBlock()
		loopBlock.AddSuccessor(loopBlock)
		entry.AddSuccessor(loopBlock)
	}

	method := sample.NewMethod(cfgGraph)

	catalog := optimizer.NewCatalog()
	catalog.Register(optimizer.NewOptimization(1, "treeSimplification", sample.NewTreeSimplification, 0))
	catalog.Register(optimizer.NewOptimization(2, "loopGuardDemo", sample.NewLoopGuardDemo, 0))

	strategy := optimizer.Strategy{
		optimizer.Run(1, optimizer.Always, optimizer.PostFlagNone),
		optimizer.Run(2, optimizer.IfLoops, optimizer.PostFlagNone),
	}

	thresholds := optimizer.Thresholds{
		MaxBlocksCold: cfg.Optimizer.Thresholds.MaxBlocksCold,
		MaxLoopsCold:  cfg.Optimizer.Thresholds.MaxLoopsCold,
		MaxBlocksHot:  cfg.Optimizer.Thresholds.MaxBlocksHot,
		MaxLoopsHot:   cfg.Optimizer.Thresholds.MaxLoopsHot,
	}

	opt, err := optimizer.CreateOptimizer(comp, method, catalog, false, strategy,
		optimizer.WithThresholds(thresholds), optimizer.WithLogger(log))
	if err != nil {
		return err
	}

	before := cfgGraph.NodeCount()
	if err := opt.Optimize(); err != nil {
		return err
	}
	after := cfgGraph.NodeCount()

	log.Info("compile demo finished", "nodesBefore", before, "nodesAfter", after, "phases", comp.Phases)
	return nil
}
