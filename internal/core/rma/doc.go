// Package rma 提供按字节数计算的远程读取辅助函数
//
// 所有类型化读取都归约为字节读取：nbytes = nelems * sizeof(T)。
// 阻塞读取（GetMem、Get、G、GetSized）发起读取后等待上下文静默；
// GetMemNBI 只发起读取，完成由 fence/quiet 或进度线程推进。
package rma
