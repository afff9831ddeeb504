package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-pgas"
	"github.com/dep2p/go-pgas/config"
)

// runOptions run 命令参数
type runOptions struct {
	npes     int
	heapSize string
	progress string
	timeout  time.Duration
}

// peResult 一个 PE 的读取结果
type peResult struct {
	pe       int
	neighbor int
	value    uint64
	ok       bool
}

// newRunCommand 创建 run 命令
func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an in-process job and check neighbour reads",
		Long: `Start --npes runtimes in this process sharing one rendezvous store and
loopback transport. Every PE writes a pattern into its symmetric heap, waits at
a barrier, reads its right-hand neighbour's heap and reports the value.

Example:
  pgas run --npes 4 --heap-size 1M --progress all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runJob(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.npes, "npes", 2, "number of PEs")
	cmd.Flags().StringVar(&opts.heapSize, "heap-size", "1M", "symmetric heap size per PE")
	cmd.Flags().StringVar(&opts.progress, "progress", "", `ranks running a progress thread ("all" or "0,2")`)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall job timeout")

	return cmd
}

// pattern PE 写入堆首部的值
func pattern(pe int) uint64 {
	return 0x5047_4153_0000_0000 | uint64(pe)
}

func runJob(ctx context.Context, opts *runOptions, out io.Writer) error {
	if opts.npes <= 0 {
		return fmt.Errorf("--npes must be positive, got %d", opts.npes)
	}
	size, err := config.ParseSize(opts.heapSize)
	if err != nil {
		return fmt.Errorf("--heap-size: %w", err)
	}
	if size < 8 {
		return fmt.Errorf("--heap-size must be at least 8 bytes, got %d", size)
	}

	job, err := pgas.NewJob(opts.npes)
	if err != nil {
		return err
	}
	defer job.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results []peResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.npes; i++ {
		g.Go(func() error {
			r, err := runPE(gctx, job, size, opts.progress)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].pe < results[j].pe })
	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.ok {
			status = "MISMATCH"
			failed++
		}
		fmt.Fprintf(out, "PE %d: read %#x from PE %d: %s\n", r.pe, r.value, r.neighbor, status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d PEs read an unexpected value", failed, opts.npes)
	}
	fmt.Fprintf(out, "all %d PEs ok\n", opts.npes)
	return nil
}

// runPE 单个 PE 的完整生命周期
func runPE(ctx context.Context, job *pgas.Job, size uint64, progress string) (peResult, error) {
	rt, err := pgas.Start(ctx,
		pgas.WithJob(job),
		pgas.WithHeapSize(size),
		pgas.WithProgressThreads(progress),
		pgas.WithFatalHandler(func(err error) {
			log.Error("PE aborted", "err", err)
		}),
	)
	if err != nil {
		return peResult{}, err
	}

	res, err := exchangePattern(ctx, rt)
	if err != nil {
		return res, multierr.Append(err, rt.Close())
	}
	return res, rt.Finalize(ctx)
}

// exchangePattern 写入模式、屏障后读取右侧邻居
func exchangePattern(ctx context.Context, rt *pgas.Runtime) (peResult, error) {
	me, npes := rt.MyPE(), rt.NPEs()
	res := peResult{pe: me, neighbor: (me + 1) % npes}

	heap, err := rt.Heap(0)
	if err != nil {
		return res, err
	}
	binary.NativeEndian.PutUint64(heap, pattern(me))

	if err := rt.Barrier(ctx); err != nil {
		return res, err
	}

	src, err := rt.Addr(0, 0)
	if err != nil {
		return res, err
	}
	res.value, err = pgas.G[uint64](rt, src, res.neighbor)
	if err != nil {
		return res, err
	}
	res.ok = res.value == pattern(res.neighbor)

	// 所有读取完成后才能释放对称堆
	return res, rt.Barrier(ctx)
}
