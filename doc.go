// Package pgas 提供分区全局地址空间（PGAS）通信运行时的核心
//
// 多个协作进程（PE）各自映射大小相同的对称堆，通过 rendezvous 服务交换
// 堆的基地址与大小后，任一 PE 都可以用本地对称地址直接读取其他 PE 的内存。
// fence/quiet 原语保证本 PE 发起的远程操作按确定的顺序完成。
//
// # 快速开始
//
//	job, _ := pgas.NewJob(4)
//	defer job.Close()
//
//	// 每个 PE 一个 Runtime（通常在各自的 goroutine 中）
//	rt, err := pgas.Start(ctx,
//	    pgas.WithJob(job),
//	    pgas.WithHeapSize(1<<20),
//	    pgas.WithProgressThreads("all"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer rt.Finalize(ctx)
//
//	heap, _ := rt.Heap(0)
//	heap[0] = byte(rt.MyPE())
//	_ = rt.Barrier(ctx)
//
//	src, _ := rt.Addr(0, 0)
//	v, _ := pgas.G[byte](rt, src, (rt.MyPE()+1)%rt.NPEs())
//
// # 初始化顺序
//
//	New ──▶ Init ──┬─ 引导（rendezvous 加入 + 屏障）
//	               ├─ 地址随机化检查（仅告警）
//	               ├─ 对称堆映射 + 发布/交换
//	               └─ 进度线程（按 rank 列表）
//	Finalize ──┬─ 停止进度线程
//	           └─ 离开作业、释放对称堆
//
// # Rendezvous
//
// 未配置 rendezvous 地址时，同一进程内共享 Job 的 Runtime 通过内存状态
// 完成引导；配置地址后连接 cmd/pgas serve 启动的网络服务。
//
// # 文件组织
//
//   - runtime.go: Runtime 与面向应用的 API
//   - options.go: 配置选项
//   - job.go: 进程内作业
//   - profiling.go: API 调用面与性能分析包装
//   - fx.go: Fx 模块组装
//   - errors.go: 错误定义
package pgas
