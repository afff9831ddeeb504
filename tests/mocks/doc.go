// Package mocks 提供外部协作者接口的测试替身
//
// 每个 Mock 都带有默认行为，可通过 XxxFunc 字段覆盖单个方法，
// 并记录调用次数供断言使用。
//
// 使用示例:
//
//	rv := mocks.NewMockRendezvous(interfaces.BootstrapInfo{Rank: 0, JobSize: 1})
//	rv.LookupFunc = func(ctx context.Context, key string, wait bool) ([]byte, error) {
//	    return nil, errors.New("boom")
//	}
package mocks
