// Package main 提供 pgas 命令行入口
//
// 子命令：
//
//	pgas serve --listen :7070 --npes 4     # 运行 rendezvous 服务
//	pgas run --npes 4 --heap-size 1M       # 运行进程内作业并报告邻居读取结果
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
